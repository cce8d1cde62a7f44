package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	USER_AGENT   = "fruitjar/1.0 (+https://github.com/sw33tLie/fruitjar)"
	maxBodyBytes = 8 << 20
)

var ErrNoURL = errors.New("catalog URL is not defined")

// Source produces a raw, untrusted catalog payload.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// HTTPConfig configures an HTTPSource.
type HTTPConfig struct {
	URL     string
	Retries int
	Timeout time.Duration
	Proxy   string
	Headers map[string]string
}

// HTTPSource fetches the catalog from a JSON endpoint.
type HTTPSource struct {
	url     string
	headers map[string]string
	client  *retryablehttp.Client
}

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	StatusCode int
	Title      string
}

func (e *StatusError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("catalog upstream returned %d (%s)", e.StatusCode, e.Title)
	}
	return fmt.Sprintf("catalog upstream returned %d", e.StatusCode)
}

func NewHTTPSource(cfg HTTPConfig) (*HTTPSource, error) {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = log.New(io.Discard, "", 0)
	retryClient.RetryMax = cfg.Retries
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	// Hand back the last response so its status and body can be reported.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if cfg.Timeout > 0 {
		retryClient.HTTPClient.Timeout = cfg.Timeout
	}

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %v", err)
		}
		retryClient.HTTPClient.Transport = &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
		}
	}

	return &HTTPSource{
		url:     strings.TrimSpace(cfg.URL),
		headers: cfg.Headers,
		client:  retryClient,
	}, nil
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	if s.url == "" {
		return nil, ErrNoURL
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", USER_AGENT)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en")
	for name, value := range s.headers {
		req.Header.Set(name, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading catalog body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Title: pageTitle(body)}
	}
	return body, nil
}

// pageTitle extracts a short description from an HTML error page, as served
// by proxies and gateways in front of the catalog.
func pageTitle(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if !bytes.HasPrefix(trimmed, []byte("<")) {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(trimmed))
	if err != nil {
		return ""
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	return strings.ToValidUTF8(strings.Join(strings.Fields(title), " "), "")
}

// FileSource reads the catalog from a local JSON file.
type FileSource struct {
	Path string
}

func (s FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return b, nil
}
