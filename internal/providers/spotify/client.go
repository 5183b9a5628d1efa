package spotify

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

	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"tonearm/internal/meta"
	"tonearm/internal/providers"
	"tonearm/internal/textutil"
)

// SourceName is the canonical source identifier for Spotify.
const SourceName = "spotify"

// Client accesses the Spotify Web API using the client credentials flow.
// Tokens are acquired and refreshed transparently by the OAuth transport.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ providers.Provider = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the OAuth-wrapped HTTP client, bypassing token
// acquisition. Intended for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a Spotify client. timeout bounds each HTTP call, token
// acquisition included.
func New(clientID, clientSecret, baseURL, tokenURL string, timeout time.Duration, ratePerSecond float64, burst int, opts ...Option) (*Client, error) {
	clientID = strings.TrimSpace(clientID)
	clientSecret = strings.TrimSpace(clientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("spotify client credentials required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("spotify base url required")
	}
	tokenURL = strings.TrimSpace(tokenURL)
	if tokenURL == "" {
		return nil, errors.New("spotify token url required")
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

	credentials := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	httpClient := credentials.Client(context.Background())
	httpClient.Timeout = timeout

	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Name returns the canonical source name.
func (c *Client) Name() string { return SourceName }

type artistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type searchResponse struct {
	Albums struct {
		Items []struct {
			ID      string      `json:"id"`
			Name    string      `json:"name"`
			Artists []artistRef `json:"artists"`
		} `json:"items"`
	} `json:"albums"`
}

type albumResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Label       string `json:"label"`
	ReleaseDate string `json:"release_date"`
	// release_date_precision is one of "year", "month", "day".
	ReleaseDatePrecision string      `json:"release_date_precision"`
	Artists              []artistRef `json:"artists"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
	Images []imageRef `json:"images"`
	Tracks trackPage  `json:"tracks"`
}

// imageRef is one cover image; Spotify orders images largest first.
type imageRef struct {
	URL string `json:"url"`
}

type trackPage struct {
	Items []trackPayload `json:"items"`
	Next  string         `json:"next"`
}

type trackPayload struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	DurationMS   int         `json:"duration_ms"`
	TrackNumber  int         `json:"track_number"`
	DiscNumber   int         `json:"disc_number"`
	Artists      []artistRef `json:"artists"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

// Search queries the album search endpoint.
func (c *Client) Search(ctx context.Context, keywords string, filters providers.SearchFilters) ([]meta.SearchResult, error) {
	query := textutil.CleanQuery(keywords)
	if query == "" {
		return nil, errors.New("search keywords must not be empty")
	}
	endpoint, err := url.Parse(c.baseURL + "/v1/search")
	if err != nil {
		return nil, fmt.Errorf("parse spotify url: %w", err)
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "album")
	if filters.Limit > 0 {
		params.Set("limit", strconv.Itoa(filters.Limit))
	}
	endpoint.RawQuery = params.Encode()

	var payload searchResponse
	if err := c.get(ctx, endpoint.String(), &payload); err != nil {
		return nil, fmt.Errorf("spotify search: %w", err)
	}

	results := make([]meta.SearchResult, 0, len(payload.Albums.Items))
	for _, item := range payload.Albums.Items {
		results = append(results, meta.SearchResult{
			ID:     item.ID,
			Title:  item.Name,
			Artist: joinArtists(item.Artists),
		})
	}
	return results, nil
}

// AlbumForID fetches the full album record, following track list pagination.
func (c *Client) AlbumForID(ctx context.Context, id string) (*meta.AlbumInfo, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("album id must not be empty")
	}

	var payload albumResponse
	err := c.get(ctx, fmt.Sprintf("%s/v1/albums/%s", c.baseURL, url.PathEscape(id)), &payload)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("spotify album %s: %w", id, err)
	}

	tracks := payload.Tracks.Items
	next := payload.Tracks.Next
	for next != "" {
		var page trackPage
		if err := c.get(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("spotify album %s tracks: %w", id, err)
		}
		tracks = append(tracks, page.Items...)
		next = page.Next
	}

	info := &meta.AlbumInfo{
		Album:       payload.Name,
		AlbumID:     payload.ID,
		Label:       payload.Label,
		DataSource:  SourceName,
		DataURL:     payload.ExternalURLs.Spotify,
		CoverArtURL: firstImage(payload.Images),
	}
	if len(payload.Artists) > 0 {
		info.ArtistID = payload.Artists[0].ID
	}
	info.Artist = joinArtists(payload.Artists)
	info.Year, info.Month, info.Day = parseReleaseDate(payload.ReleaseDate, payload.ReleaseDatePrecision)

	mediums := 0
	for i, track := range tracks {
		disc := track.DiscNumber
		if disc == 0 {
			disc = 1
		}
		if disc > mediums {
			mediums = disc
		}
		position := track.TrackNumber
		if position == 0 {
			position = i + 1
		}
		trackInfo := meta.TrackInfo{
			Title:       track.Name,
			TrackID:     track.ID,
			Artist:      joinArtists(track.Artists),
			Length:      track.DurationMS / 1000,
			Index:       i + 1,
			Medium:      disc,
			MediumIndex: position,
			DataURL:     track.ExternalURLs.Spotify,
		}
		if len(track.Artists) > 0 {
			trackInfo.ArtistID = track.Artists[0].ID
		}
		info.Tracks = append(info.Tracks, trackInfo)
	}
	info.Mediums = mediums
	return info, nil
}

var errNotFound = errors.New("not found")

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

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return errNotFound
	default:
		return fmt.Errorf("spotify returned %d (latency=%v)", resp.StatusCode, latency)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode spotify response: %w", err)
	}
	return nil
}

func firstImage(images []imageRef) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

func joinArtists(artists []artistRef) string {
	names := make([]string, 0, len(artists))
	for _, artist := range artists {
		if artist.Name != "" {
			names = append(names, artist.Name)
		}
	}
	return strings.Join(names, ", ")
}

func parseReleaseDate(raw, precision string) (year, month, day int) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, 0, 0
	}
	layout := "2006-01-02"
	switch precision {
	case "year":
		layout = "2006"
	case "month":
		layout = "2006-01"
	}
	parsed, err := time.Parse(layout, raw)
	if err != nil {
		return 0, 0, 0
	}
	switch precision {
	case "year":
		return parsed.Year(), 0, 0
	case "month":
		return parsed.Year(), int(parsed.Month()), 0
	default:
		return parsed.Year(), int(parsed.Month()), parsed.Day()
	}
}
