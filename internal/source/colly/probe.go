// Package collyprobe checks registry availability with a plain HTTP GET
// before any browser session is started.
package collyprobe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/lto-plan-scraper/internal/source/detector"
	"github.com/JakeFAU/lto-plan-scraper/internal/source/headless"
)

// Config controls collector behavior.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Status is the outcome of one availability check.
type Status struct {
	URL        string
	Up         bool
	StatusCode int
	// Reason explains a down verdict.
	Reason   string
	Duration time.Duration
}

// Prober fetches the search services page and classifies it.
type Prober struct {
	cfg           Config
	detector      *detector.Maintenance
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Prober. A nil detector uses the default maintenance rules.
func New(cfg Config, det *detector.Maintenance) *Prober {
	if det == nil {
		det = detector.NewMaintenance(nil, nil)
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())
	return &Prober{cfg: cfg, detector: det, baseCollector: c}
}

// URL is the page the probe requests.
func (p *Prober) URL() string {
	return strings.TrimRight(p.cfg.BaseURL, "/") + headless.SearchServicesPath
}

// Check requests the search services page once. Transport failures are
// returned as errors; HTTP error statuses yield a down Status.
func (p *Prober) Check(ctx context.Context) (Status, error) {
	var (
		status   Status
		fetchErr error
	)
	start := time.Now()
	collector := p.buildCollector(&status, &fetchErr, start)
	target := p.URL()
	status.URL = target

	if err := runCollector(ctx, collector, target, &fetchErr); err != nil {
		return Status{URL: target}, err
	}
	return status, nil
}

func (p *Prober) buildCollector(status *Status, fetchErr *error, start time.Time) *colly.Collector {
	collector := p.baseCollector.Clone()
	collector.AllowURLRevisit = true
	collector.IgnoreRobotsTxt = true
	collector.ParseHTTPErrorResponse = true
	if p.cfg.UserAgent != "" {
		collector.UserAgent = p.cfg.UserAgent
	}
	timeout := p.cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collector.SetRequestTimeout(timeout)
	p.configureHooks(collector, status, fetchErr, start)
	return collector
}

func (p *Prober) configureHooks(hooks collectorHooks, status *Status, fetchErr *error, start time.Time) {
	classify := func(r *colly.Response) {
		down, reason := p.detector.Down(r.StatusCode, r.Body)
		*status = Status{
			URL:        r.Request.URL.String(),
			Up:         !down,
			StatusCode: r.StatusCode,
			Reason:     reason,
			Duration:   time.Since(start),
		}
	}

	hooks.OnResponse(classify)

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 && r.Request != nil {
			classify(r)
			return
		}
		*fetchErr = err
	})
}

func runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("availability check canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("availability check failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("availability check failed: %w", *fetchErr)
		}
		return nil
	}
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
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
}
