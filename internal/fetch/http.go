package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"github.com/chatvault/mediadl/internal/model"
)

// HTTPStrategy fetches directly addressable content over plain HTTP. It
// serves pointers that carry a full URL, or a DirectPath when a media host
// base URL is configured.
type HTTPStrategy struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

// NewHTTPStrategy creates the direct-URL strategy. baseURL may be empty, in
// which case only pointers with a full URL are served. Timeouts are managed
// by the driver's context, not the client.
func NewHTTPStrategy(baseURL string) *HTTPStrategy {
	return &HTTPStrategy{
		client:    &http.Client{},
		baseURL:   baseURL,
		userAgent: "mediadl",
	}
}

func (s *HTTPStrategy) Name() string { return "direct-http" }

// Fetch downloads the pointer's URL into memory. Content is buffered rather
// than streamed because integrity verification needs the full byte slice
// before anything touches its final path.
func (s *HTTPStrategy) Fetch(ctx context.Context, p model.MediaPointer) (*Result, error) {
	target, err := s.resolveURL(p)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	parsed, _ := url.Parse(target)
	filename := ""
	if parsed != nil {
		filename = path.Base(parsed.Path)
	}

	return &Result{
		Data:     data,
		Mimetype: resp.Header.Get("Content-Type"),
		Filename: filename,
	}, nil
}

func (s *HTTPStrategy) resolveURL(p model.MediaPointer) (string, error) {
	if p.URL != "" {
		return p.URL, nil
	}
	if p.DirectPath != "" && s.baseURL != "" {
		base, err := url.Parse(s.baseURL)
		if err != nil {
			return "", err
		}
		rel, err := url.Parse(p.DirectPath)
		if err != nil {
			return "", err
		}
		return base.ResolveReference(rel).String(), nil
	}
	return "", fmt.Errorf("pointer is not directly addressable")
}
