package yandex

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	apiBase   = "https://api.music.yandex.net"
	webBase   = "https://music.yandex.ru"
	userAgent = "ym-bot/0.2 (+github.com/ndrewnee/go-yandex-music compatible)"

	// signSalt is mixed into the md5 signature of a direct mp3 link.
	signSalt = "XGRlBW9FXlekgbPrRHuSiA"
)

// ErrNotFound is returned when the service has no record for a track id.
var ErrNotFound = errors.New("track not found")

// Track represents a minimal subset of Yandex Music track fields.
type Track struct {
	ID         string
	Title      string
	Artists    []string
	DurationMs int
	CoverURL   string
	AlbumTitle string
}

// DownloadInfo is one encoding offered for a track.
type DownloadInfo struct {
	Codec   string
	Bitrate int
	InfoURL string
}

// Client describes operations the service layer relies on.
// Implementations must be safe for concurrent use.
type Client interface {
	SearchTracks(ctx context.Context, query string, limit, offset int) ([]Track, error)
	GetTrack(ctx context.Context, id string) (Track, error)
	GetDownloadInfo(ctx context.Context, id string) ([]DownloadInfo, error)
	DirectLink(ctx context.Context, info DownloadInfo) (string, error)
}

// HTTPClient wraps the stdlib client for easier testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIClient implements Client against Yandex Music HTTP endpoints.
type APIClient struct {
	httpClient HTTPClient
	baseURL    string
	token      string
	logger     *zap.Logger
}

// NewClient builds a Yandex Music API client.
func NewClient(httpClient HTTPClient, token string, logger *zap.Logger) *APIClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	return &APIClient{
		httpClient: httpClient,
		baseURL:    apiBase,
		token:      token,
		logger:     logger,
	}
}

// SearchTracks queries Yandex Music search API for tracks.
func (c *APIClient) SearchTracks(ctx context.Context, query string, limit, offset int) ([]Track, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is empty")
	}
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	page := offset / limit

	q := url.Values{}
	q.Set("text", query)
	q.Set("type", "track")
	q.Set("page", fmt.Sprintf("%d", page))
	q.Set("nocorrect", "false")

	var payload searchResponse
	if err := c.getJSON(ctx, c.baseURL+"/search?"+q.Encode(), &payload); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	if payload.Result.Tracks == nil {
		return nil, nil
	}

	results := payload.Result.Tracks.Results
	tracks := make([]Track, 0, min(limit, len(results)))
	for i, t := range results {
		if i >= limit {
			break
		}
		tracks = append(tracks, mapTrack(t))
	}

	return tracks, nil
}

// GetTrack fetches detailed track metadata by id.
func (c *APIClient) GetTrack(ctx context.Context, id string) (Track, error) {
	if id == "" {
		return Track{}, fmt.Errorf("track id is empty")
	}

	var payload trackResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/tracks/%s", c.baseURL, url.PathEscape(id)), &payload); err != nil {
		return Track{}, fmt.Errorf("get track: %w", err)
	}

	if len(payload.Result) == 0 {
		return Track{}, ErrNotFound
	}

	return mapTrack(payload.Result[0]), nil
}

// GetDownloadInfo lists the encodings the service offers for a track.
// Preview-only entries are skipped.
func (c *APIClient) GetDownloadInfo(ctx context.Context, id string) ([]DownloadInfo, error) {
	if id == "" {
		return nil, fmt.Errorf("track id is empty")
	}

	var payload downloadInfoResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/tracks/%s/download-info", c.baseURL, url.PathEscape(id)), &payload); err != nil {
		return nil, fmt.Errorf("download-info: %w", err)
	}

	infos := make([]DownloadInfo, 0, len(payload.Result))
	for _, item := range payload.Result {
		if item.Preview || item.URL == "" {
			continue
		}
		infos = append(infos, DownloadInfo{
			Codec:   item.Codec,
			Bitrate: item.Bitrate,
			InfoURL: item.URL,
		})
	}

	return infos, nil
}

// DirectLink resolves a download-info entry into a direct, short-lived audio URL.
// Some deployments answer with JSON {"src": "..."}, others with XML carrying
// host/path/ts/s which has to be signed and combined into the final URL.
func (c *APIClient) DirectLink(ctx context.Context, info DownloadInfo) (string, error) {
	if info.InfoURL == "" {
		return "", fmt.Errorf("download info url is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.InfoURL, nil)
	if err != nil {
		return "", err
	}
	c.attachHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	if err != nil {
		return "", fmt.Errorf("read download info: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download info failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var payload struct {
		Src string `json:"src"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Src != "" {
		return payload.Src, nil
	}

	direct, err := parseDownloadInfoXML(body)
	if err != nil {
		return "", fmt.Errorf("cannot resolve direct link: %w", err)
	}
	return direct, nil
}

func (c *APIClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	c.attachHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *APIClient) attachHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "OAuth "+c.token)
	}
}

// parseDownloadInfoXML builds the final mp3 URL from XML payload.
func parseDownloadInfoXML(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty xml body")
	}

	var info downloadInfoXML
	if err := xml.Unmarshal(data, &info); err != nil {
		return "", err
	}
	if info.Host == "" || info.Path == "" || info.TS == "" || info.S == "" {
		return "", fmt.Errorf("incomplete xml fields")
	}

	return fmt.Sprintf("https://%s/get-mp3/%s/%s%s", info.Host, signPath(info.Path, info.S), info.TS, info.Path), nil
}

func signPath(path, s string) string {
	sum := md5.Sum([]byte(signSalt + strings.TrimPrefix(path, "/") + s))
	return hex.EncodeToString(sum[:])
}

// mapTrack converts API model to internal Track.
func mapTrack(t trackDTO) Track {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if a.Name != "" {
			artists = append(artists, a.Name)
		}
	}

	cover := ""
	if t.CoverURI != "" {
		cover = "https://" + strings.ReplaceAll(t.CoverURI, "%%", "200x200")
	}

	duration := t.DurationMs
	if duration < 0 {
		duration = 0
	}

	return Track{
		ID:         t.ID.String(),
		Title:      t.Title,
		Artists:    artists,
		DurationMs: duration,
		CoverURL:   cover,
		AlbumTitle: t.Albums.Title(),
	}
}
