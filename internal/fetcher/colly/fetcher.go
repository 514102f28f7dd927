// Package collyfetcher implements page text retrieval using gocolly.
package collyfetcher

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/agent-007-kali/intel-agent/internal/intel"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	MaxChars  int
}

// Fetcher implements intel.Fetcher using the Colly collector. It never
// returns an error: unreachable pages, non-2xx statuses and timeouts all
// degrade to a typed FetchResult so one bad page cannot abort a cycle.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxChars == 0 {
		cfg.MaxChars = 3000
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := colly.NewCollector(colly.Async(false))
	// colly v2.1.0's Async option ignores its argument and always enables
	// async mode; the field assignment keeps Visit synchronous.
	c.Async = false
	c.IgnoreRobotsTxt = true
	transport := newHTTPTransport()
	c.WithTransport(transport)

	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
		logger:        logger,
	}
}

// visitResult is the response state owned by a single visit goroutine.
type visitResult struct {
	body       []byte
	statusCode int
	err        error
}

// Fetch executes a single HTTP GET and extracts normalized page text.
func (f *Fetcher) Fetch(ctx context.Context, url string) intel.FetchResult {
	collector := f.baseCollector.Clone()
	collector.IgnoreRobotsTxt = true
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)
	if f.transport != nil {
		collector.WithTransport(f.transport)
	}

	var result intel.FetchResult
	res, err := f.visit(ctx, collector, url)
	if err != nil {
		// Canceled mid-flight. The abandoned goroutine keeps sole
		// ownership of its response state; classify only sees the
		// context error.
		result = f.classify(url, nil, 0, err)
	} else {
		result = f.classify(url, res.body, res.statusCode, res.err)
	}
	f.logger.Debug("page fetched",
		zap.String("url", url),
		zap.String("result", result.Kind.String()),
		zap.Int("status", result.StatusCode),
		zap.Int("chars", len(result.Text)),
	)
	return result
}

// visit runs the collector in its own goroutine. The goroutine has
// exclusive ownership of the visitResult it builds: callbacks write only
// into it, and the caller sees it only after the goroutine is done with
// it, via the channel. When ctx fires first the result is abandoned along
// with the goroutine, never read.
func (f *Fetcher) visit(ctx context.Context, collector *colly.Collector, url string) (visitResult, error) {
	done := make(chan visitResult, 1)
	go func() {
		var res visitResult
		collector.OnResponse(func(r *colly.Response) {
			res.statusCode = r.StatusCode
			res.body = append([]byte(nil), r.Body...)
		})
		collector.OnError(func(r *colly.Response, err error) {
			if r != nil && r.StatusCode > 0 {
				res.statusCode = r.StatusCode
			}
			res.err = err
		})
		if err := collector.Visit(url); err != nil && res.err == nil {
			res.err = err
		}
		done <- res
	}()

	select {
	case <-ctx.Done():
		return visitResult{}, ctx.Err()
	case res := <-done:
		return res, nil
	}
}

func (f *Fetcher) classify(url string, body []byte, statusCode int, fetchErr error) intel.FetchResult {
	switch {
	case fetchErr != nil && isTimeout(fetchErr):
		f.logger.Warn("fetch timed out", zap.String("url", url), zap.Error(fetchErr))
		return intel.FetchResult{Kind: intel.FetchTimeout}
	case fetchErr != nil && statusCode >= 300:
		f.logger.Warn("fetch returned non-success status",
			zap.String("url", url), zap.Int("status", statusCode))
		return intel.FetchResult{Kind: intel.FetchHTTPError, StatusCode: statusCode}
	case fetchErr != nil:
		f.logger.Warn("fetch transport error", zap.String("url", url), zap.Error(fetchErr))
		return intel.FetchResult{Kind: intel.FetchTransportError}
	}

	text, err := extractText(body)
	if err != nil {
		f.logger.Warn("text extraction failed", zap.String("url", url), zap.Error(err))
		return intel.FetchResult{Kind: intel.FetchEmpty, StatusCode: statusCode}
	}
	text = truncate(text, f.cfg.MaxChars)
	if text == "" {
		return intel.FetchResult{Kind: intel.FetchEmpty, StatusCode: statusCode}
	}
	return intel.FetchResult{Kind: intel.FetchOK, Text: text, StatusCode: statusCode}
}

// extractText strips markup and collapses all whitespace runs to single
// spaces.
func extractText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

// truncate caps s at max runes without splitting a character.
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
