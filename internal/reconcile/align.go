package reconcile

import (
	"math"

	"tonearm/internal/library"
	"tonearm/internal/meta"
)

// pairingCutoff is the track distance above which an assigned pair is
// rejected and both sides fall out into the extras.
const pairingCutoff = 0.6

// Alignment is the result of matching local tracks against a provider's
// track list. Mapping is one-to-one in both directions; an empty mapping is
// a valid result meaning the record is unusable for this album.
type Alignment struct {
	Mapping         map[int64]meta.TrackInfo
	ExtraTracks     []*library.Track
	ExtraInfoTracks []meta.TrackInfo
}

// Align computes the best one-to-one assignment between local tracks and
// provider tracks by solving the assignment problem over pairwise distances.
// Unmatched tracks on either side are reported, never silently dropped.
func Align(tracks []*library.Track, infoTracks []meta.TrackInfo, scorer Scorer) Alignment {
	alignment := Alignment{Mapping: make(map[int64]meta.TrackInfo)}
	if len(tracks) == 0 || len(infoTracks) == 0 {
		alignment.ExtraTracks = append(alignment.ExtraTracks, tracks...)
		alignment.ExtraInfoTracks = append(alignment.ExtraInfoTracks, infoTracks...)
		return alignment
	}

	n := len(tracks)
	m := len(infoTracks)
	size := max(n, m)

	// Cost matrix for minimization. Padded rows/cols use a high cost so
	// they are only chosen when a real pairing is impossible.
	const padCost = 2.0
	cost := make([][]float64, size)
	distances := make([][]float64, size)
	for i := 0; i < size; i++ {
		cost[i] = make([]float64, size)
		distances[i] = make([]float64, size)
		for j := 0; j < size; j++ {
			cost[i][j] = padCost
			distances[i][j] = padCost
		}
	}
	for i, track := range tracks {
		for j, infoTrack := range infoTracks {
			distance := scorer.TrackDistance(track, infoTrack)
			distances[i][j] = distance
			cost[i][j] = distance
		}
	}

	assign := hungarian(cost)

	pairedInfo := make([]bool, m)
	for i, j := range assign {
		if i >= n || j < 0 || j >= m {
			continue
		}
		if distances[i][j] > pairingCutoff {
			continue
		}
		alignment.Mapping[tracks[i].ID] = infoTracks[j]
		pairedInfo[j] = true
	}

	for _, track := range tracks {
		if _, ok := alignment.Mapping[track.ID]; !ok {
			alignment.ExtraTracks = append(alignment.ExtraTracks, track)
		}
	}
	for j, infoTrack := range infoTracks {
		if !pairedInfo[j] {
			alignment.ExtraInfoTracks = append(alignment.ExtraInfoTracks, infoTrack)
		}
	}
	return alignment
}

// hungarian solves the assignment problem for a square cost matrix
// (minimization). Returns assignment[i] = column chosen for row i, or -1.
func hungarian(cost [][]float64) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}
	m := len(cost[0])
	if m != n {
		return nil
	}

	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1)
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := 0; j <= n; j++ {
			minv[j] = math.Inf(1)
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := math.Inf(1)
			j1 := 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
			if j0 == 0 {
				break
			}
		}
	}

	assign := make([]int, n)
	for i := range assign {
		assign[i] = -1
	}
	for j := 1; j <= n; j++ {
		if p[j] > 0 && p[j]-1 < n {
			assign[p[j]-1] = j - 1
		}
	}
	return assign
}
