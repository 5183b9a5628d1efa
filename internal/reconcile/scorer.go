package reconcile

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"tonearm/internal/library"
	"tonearm/internal/meta"
	"tonearm/internal/textutil"
)

// Scorer is the pluggable distance primitive. Distances are badness scores
// in [0, 1], lower is better.
type Scorer interface {
	AlbumDistance(artist, title string, info *meta.AlbumInfo) float64
	TrackDistance(track *library.Track, info meta.TrackInfo) float64
}

// ordinalPenalty is added when a track pair disagrees on position.
const ordinalPenalty = 0.1

type jaroWinklerScorer struct {
	metric *metrics.JaroWinkler
}

// NewScorer returns the default Jaro-Winkler scorer.
func NewScorer() Scorer {
	return &jaroWinklerScorer{metric: metrics.NewJaroWinkler()}
}

func (s *jaroWinklerScorer) AlbumDistance(artist, title string, info *meta.AlbumInfo) float64 {
	if info == nil {
		return 1
	}
	titleDistance := 1 - s.similarity(title, info.Album)
	if strings.TrimSpace(artist) == "" || strings.TrimSpace(info.Artist) == "" {
		return clamp(titleDistance)
	}
	artistDistance := 1 - s.similarity(artist, info.Artist)
	return clamp(0.5*titleDistance + 0.5*artistDistance)
}

func (s *jaroWinklerScorer) TrackDistance(track *library.Track, info meta.TrackInfo) float64 {
	if track == nil {
		return 1
	}
	distance := 1 - s.similarity(track.Title, info.Title)
	if track.Index > 0 && info.Index > 0 && track.Index != info.Index {
		distance += ordinalPenalty
	}
	return clamp(distance)
}

func (s *jaroWinklerScorer) similarity(a, b string) float64 {
	a = strings.ToLower(textutil.CleanQuery(a))
	b = strings.ToLower(textutil.CleanQuery(b))
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	return strutil.Similarity(a, b, s.metric)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
