package provider

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	appLog "assesscal/internal/log"
	"assesscal/internal/model"
)

// Source supplies the current list of records.
type Source interface {
	Records(ctx context.Context) ([]model.Record, error)
}

// StaticSource serves a fixed list of records.
type StaticSource []model.Record

// Records returns a copy of the list.
func (s StaticSource) Records(_ context.Context) ([]model.Record, error) {
	out := make([]model.Record, len(s))
	copy(out, s)
	return out, nil
}

// FetchError describes a failed provider request with no cached body to
// fall back on.
type FetchError struct {
	URL    string
	Status int // 0 for transport errors
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider fetch %s: status %d: %v", redactURL(e.URL), e.Status, e.Err)
	}
	return fmt.Sprintf("provider fetch %s: %v", redactURL(e.URL), e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// cacheEntry holds HTTP cache metadata for the provider URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// payloadFormat describes how a provider body is recognized and decoded.
type payloadFormat struct {
	accept   string
	bodyFile string
	valid    func([]byte) bool
	decode   func([]byte) ([]model.Record, error)
}

var jsonFormat = payloadFormat{
	accept:   "application/json",
	bodyFile: "body.json",
	valid:    json.Valid,
	decode: func(body []byte) ([]model.Record, error) {
		var recs []model.Record
		err := json.Unmarshal(body, &recs)
		return recs, err
	},
}

// HTTPSource fetches provider records with HTTP caching
// (ETag / Last-Modified) and a disk-backed copy of the last good body.
type HTTPSource struct {
	url      string
	token    string
	client   *http.Client
	cacheDir string
	format   payloadFormat
}

// NewHTTPSource creates a Source for url.
//
// cacheDir is the base directory where per-URL cache subdirectories and
// metadata will be stored. Example: "/var/lib/assesscal/provider-cache".
func NewHTTPSource(url, token, cacheDir string) *HTTPSource {
	if cacheDir == "" {
		cacheDir = "./var/provider-cache"
	}
	return &HTTPSource{
		url:   url,
		token: token,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		cacheDir: cacheDir,
		format:   jsonFormat,
	}
}

// NewICSSource creates a Source for an iCalendar subscription at url.
// Recurring events are expanded from pastDays before to aheadDays after
// each refresh.
func NewICSSource(url, token, cacheDir string, pastDays, aheadDays int) *HTTPSource {
	s := NewHTTPSource(url, token, cacheDir)
	s.format = payloadFormat{
		accept:   "text/calendar",
		bodyFile: "body.ics",
		valid: func(body []byte) bool {
			return bytes.Contains(body, []byte("BEGIN:VCALENDAR"))
		},
		decode: func(body []byte) ([]model.Record, error) {
			now := time.Now()
			return DecodeICS(body, Window{
				From: now.AddDate(0, 0, -pastDays),
				To:   now.AddDate(0, 0, aheadDays),
			})
		},
	}
	return s
}

// Records fetches and decodes the provider payload, honoring ETag and
// Last-Modified. Network errors, non-OK statuses and bodies that fail to
// decode fall back to the cached body when one exists. Only a body that
// decodes replaces the cache.
func (s *HTTPSource) Records(ctx context.Context) ([]model.Record, error) {
	recs, fromCache, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	appLog.Info("provider records loaded", "url", redactURL(s.url), "records", len(recs), "from_cache", fromCache)
	return recs, nil
}

func (s *HTTPSource) decode(body []byte) ([]model.Record, error) {
	if !s.format.valid(body) {
		return nil, errors.New("response is not a valid " + s.format.accept + " payload")
	}
	recs, err := s.format.decode(body)
	if err != nil {
		return nil, fmt.Errorf("provider decode %s: %w", redactURL(s.url), err)
	}
	return recs, nil
}

// decodeCached decodes the cached body. A cached body is only ever one that
// decoded when it was saved.
func (s *HTTPSource) decodeCached(body []byte) ([]model.Record, bool, error) {
	recs, err := s.decode(body)
	if err != nil {
		return nil, false, err
	}
	return recs, true, nil
}

func (s *HTTPSource) fetch(ctx context.Context) ([]model.Record, bool, error) {
	if s.url == "" {
		return nil, false, errors.New("provider URL is empty")
	}

	cachePath := s.cachePath()
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return nil, false, err
	}

	meta, _ := loadCacheMeta(cachePath)
	cachedBody, _ := loadCacheBody(cachePath, s.format.bodyFile)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", s.format.accept)
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	// Conditional headers only make sense when we still hold the body.
	if len(cachedBody) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Error("provider network error, using cached body", err, "url", redactURL(s.url))
			return s.decodeCached(cachedBody)
		}
		return nil, false, &FetchError{URL: s.url, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, false, &FetchError{URL: s.url, Status: resp.StatusCode, Err: err}
		}
		recs, err := s.decode(body)
		if err != nil {
			if len(cachedBody) > 0 {
				appLog.Error("provider body rejected, using cached body", err, "url", redactURL(s.url))
				return s.decodeCached(cachedBody)
			}
			return nil, false, &FetchError{URL: s.url, Status: resp.StatusCode, Err: err}
		}
		newMeta := cacheEntry{
			URL:          s.url,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := saveCache(cachePath, s.format.bodyFile, newMeta, body); err != nil {
			// Log but still return the freshly fetched records.
			appLog.Error("provider cache save failed", err, "url", redactURL(s.url))
		}
		return recs, false, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return nil, false, &FetchError{URL: s.url, Status: resp.StatusCode, Err: errors.New("not modified but no cached body available")}
		}
		appLog.Debug("provider not modified; using cache", "url", redactURL(s.url))
		return s.decodeCached(cachedBody)

	default:
		if len(cachedBody) > 0 {
			appLog.Error("provider non-OK, using cached body", errors.New(resp.Status), "url", redactURL(s.url), "status", resp.StatusCode)
			return s.decodeCached(cachedBody)
		}
		return nil, false, &FetchError{URL: s.url, Status: resp.StatusCode, Err: errors.New(resp.Status)}
	}
}

func (s *HTTPSource) cachePath() string {
	sum := sha256.Sum256([]byte(s.url))
	// First 16 hex chars as directory name.
	return filepath.Join(s.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func loadCacheBody(cachePath, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(cachePath, name))
}

func saveCache(cachePath, name string, meta cacheEntry, body []byte) error {
	// Write body first so meta never points at missing body.
	if err := os.WriteFile(filepath.Join(cachePath, name), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL keeps only scheme and host of u for logging.
//
//	https://example.com/path/to/records?token=abcd
//	-> https://example.com/...(redacted)
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "provider://...(redacted)"
	}

	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}
	return u[:j] + redactedSuffix
}
