package deezer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tonearm/internal/meta"
	"tonearm/internal/providers"
	"tonearm/internal/textutil"
)

// SourceName is the canonical source identifier for Deezer.
const SourceName = "deezer"

// Client accesses the Deezer public API. No authentication is required.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ providers.Provider = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a Deezer client. timeout bounds each HTTP call; ratePerSecond
// and burst bound the request rate (Deezer enforces 50 requests per 5
// seconds).
func New(baseURL string, timeout time.Duration, ratePerSecond float64, burst int, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("deezer base url required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if ratePerSecond <= 0 {
		ratePerSecond = 5
	}
	if burst < 1 {
		burst = 1
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Name returns the canonical source name.
func (c *Client) Name() string { return SourceName }

type searchResponse struct {
	Data []struct {
		ID     int64  `json:"id"`
		Title  string `json:"title"`
		Artist struct {
			Name string `json:"name"`
		} `json:"artist"`
	} `json:"data"`
}

type albumResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	CoverXL     string `json:"cover_xl"`
	Label       string `json:"label"`
	ReleaseDate string `json:"release_date"`
	Artist      struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"artist"`
	Tracks struct {
		Data []trackPayload `json:"data"`
	} `json:"tracks"`
	Error *apiError `json:"error"`
}

type trackListResponse struct {
	Data  []trackPayload `json:"data"`
	Next  string         `json:"next"`
	Error *apiError      `json:"error"`
}

type trackPayload struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Link          string `json:"link"`
	Duration      int    `json:"duration"`
	TrackPosition int    `json:"track_position"`
	DiskNumber    int    `json:"disk_number"`
	ISRC          string `json:"isrc"`
	Artist        struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"artist"`
}

type trackResponse struct {
	trackPayload
	Album struct {
		ID int64 `json:"id"`
	} `json:"album"`
	Error *apiError `json:"error"`
}

// apiError is Deezer's in-band error envelope; the HTTP status stays 200.
type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Search queries Deezer's album search. Keywords are folded to ASCII because
// Deezer's matching is unreliable with combining diacritics.
func (c *Client) Search(ctx context.Context, keywords string, filters providers.SearchFilters) ([]meta.SearchResult, error) {
	query := textutil.CleanQuery(keywords)
	if query == "" {
		return nil, errors.New("search keywords must not be empty")
	}
	endpoint, err := url.Parse(c.baseURL + "/search/album")
	if err != nil {
		return nil, fmt.Errorf("parse deezer url: %w", err)
	}
	params := url.Values{}
	params.Set("q", query)
	if filters.Limit > 0 {
		params.Set("limit", strconv.Itoa(filters.Limit))
	}
	endpoint.RawQuery = params.Encode()

	var payload searchResponse
	if err := c.get(ctx, endpoint.String(), &payload); err != nil {
		return nil, fmt.Errorf("deezer search: %w", err)
	}

	results := make([]meta.SearchResult, 0, len(payload.Data))
	for _, item := range payload.Data {
		results = append(results, meta.SearchResult{
			ID:     strconv.FormatInt(item.ID, 10),
			Title:  item.Title,
			Artist: item.Artist.Name,
		})
	}
	return results, nil
}

// AlbumForID fetches a full album record including its track list. Albums
// with more than 25 tracks require a follow-up call because the embedded
// track list is truncated.
func (c *Client) AlbumForID(ctx context.Context, id string) (*meta.AlbumInfo, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("album id must not be empty")
	}

	var payload albumResponse
	if err := c.get(ctx, fmt.Sprintf("%s/album/%s", c.baseURL, url.PathEscape(id)), &payload); err != nil {
		return nil, fmt.Errorf("deezer album %s: %w", id, err)
	}
	if payload.Error != nil {
		// DataException code 800 means the album does not exist.
		if payload.Error.Code == 800 {
			return nil, nil
		}
		return nil, fmt.Errorf("deezer album %s: %s (code %d)", id, payload.Error.Message, payload.Error.Code)
	}

	tracks := payload.Tracks.Data
	if len(tracks) == 25 {
		full, err := c.albumTracks(ctx, id)
		if err != nil {
			return nil, err
		}
		tracks = full
	}

	info := &meta.AlbumInfo{
		Album:       payload.Title,
		AlbumID:     strconv.FormatInt(payload.ID, 10),
		Artist:      payload.Artist.Name,
		ArtistID:    strconv.FormatInt(payload.Artist.ID, 10),
		Label:       payload.Label,
		DataSource:  SourceName,
		DataURL:     payload.Link,
		CoverArtURL: payload.CoverXL,
	}
	if year, month, day, ok := parseReleaseDate(payload.ReleaseDate); ok {
		info.Year, info.Month, info.Day = year, month, day
	}

	mediums := 0
	for i, track := range tracks {
		mapped := trackInfo(track, i+1)
		if mapped.Medium > mediums {
			mediums = mapped.Medium
		}
		info.Tracks = append(info.Tracks, mapped)
	}
	info.Mediums = mediums
	return info, nil
}

// TrackForID fetches a single track record. The full track payload is the
// only Deezer response that carries the ISRC; embedded album track lists
// omit it.
func (c *Client) TrackForID(ctx context.Context, id string) (*meta.TrackInfo, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("track id must not be empty")
	}

	var payload trackResponse
	if err := c.get(ctx, fmt.Sprintf("%s/track/%s", c.baseURL, url.PathEscape(id)), &payload); err != nil {
		return nil, fmt.Errorf("deezer track %s: %w", id, err)
	}
	if payload.Error != nil {
		if payload.Error.Code == 800 {
			return nil, nil
		}
		return nil, fmt.Errorf("deezer track %s: %s (code %d)", id, payload.Error.Message, payload.Error.Code)
	}

	info := trackInfo(payload.trackPayload, payload.TrackPosition)
	// The position on the whole release is only derivable from the album's
	// track list.
	if payload.Album.ID != 0 {
		siblings, err := c.albumTracks(ctx, strconv.FormatInt(payload.Album.ID, 10))
		if err != nil {
			return nil, err
		}
		for i, sibling := range siblings {
			if sibling.ID == payload.ID {
				info.Index = i + 1
				break
			}
		}
	}
	return &info, nil
}

func trackInfo(track trackPayload, index int) meta.TrackInfo {
	disk := track.DiskNumber
	if disk == 0 {
		disk = 1
	}
	position := track.TrackPosition
	if position == 0 {
		position = index
	}
	return meta.TrackInfo{
		Title:       track.Title,
		TrackID:     strconv.FormatInt(track.ID, 10),
		Artist:      track.Artist.Name,
		ArtistID:    strconv.FormatInt(track.Artist.ID, 10),
		Length:      track.Duration,
		Index:       index,
		Medium:      disk,
		MediumIndex: position,
		ISRC:        track.ISRC,
		DataURL:     track.Link,
	}
}

func (c *Client) albumTracks(ctx context.Context, id string) ([]trackPayload, error) {
	next := fmt.Sprintf("%s/album/%s/tracks", c.baseURL, url.PathEscape(id))
	var tracks []trackPayload
	for next != "" {
		var payload trackListResponse
		if err := c.get(ctx, next, &payload); err != nil {
			return nil, fmt.Errorf("deezer album %s tracks: %w", id, err)
		}
		if payload.Error != nil {
			return nil, fmt.Errorf("deezer album %s tracks: %s (code %d)",
				id, payload.Error.Message, payload.Error.Code)
		}
		tracks = append(tracks, payload.Data...)
		next = payload.Next
	}
	return tracks, nil
}

func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deezer returned %d (latency=%v)", resp.StatusCode, latency)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode deezer response: %w", err)
	}
	return nil
}

func parseReleaseDate(raw string) (year, month, day int, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "0000") {
		return 0, 0, 0, false
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		if parsed, err = time.Parse("2006", raw); err != nil {
			return 0, 0, 0, false
		}
		return parsed.Year(), 0, 0, true
	}
	return parsed.Year(), int(parsed.Month()), parsed.Day(), true
}
