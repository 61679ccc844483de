// Package headless drives the registry's plan search through headless Chrome.
package headless

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
	"github.com/JakeFAU/lto-plan-scraper/internal/source/results"
)

// Registry page paths and form selectors.
const (
	SearchServicesPath = "/lto/jsp/documentSearchServices.jsp"
	SearchByLotPath    = "/lto/actions/initializeSearchByParishSettlementLot"

	lotNumberSelector = `input[type='text'][name='lotNumber']`
	lotTypeSelector   = `select[name='lotTypeRefId']`
	parishSelector    = `select[name='parishRefId']`
	submitSelector    = `input[type='submit'][name='searchPlansByParishSettlementLotAction']`
)

// staleMarker is set on the outgoing document so a navigation is detected
// once the new document no longer carries it.
const staleMarker = "__planscraperStale"

// Throttle paces navigations against a host.
type Throttle interface {
	Wait(ctx context.Context, rawURL string) error
}

// Config controls the behavior of the headless source.
type Config struct {
	BaseURL           string
	UserAgent         string
	NavigationTimeout time.Duration
	// ShowBrowser runs Chrome with a visible window.
	ShowBrowser bool
	// Throttle is consulted before the search and before every page turn.
	Throttle Throttle
}

type noThrottle struct{}

func (noThrottle) Wait(context.Context, string) error { return nil }

// Source implements plan.Source using chromedp and headless Chrome. Each
// session gets its own tab in a shared browser.
type Source struct {
	cfg         Config
	searchURL   string
	linkSel     string
	allocator   context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// New creates a headless source backed by chromedp.
func New(cfg Config, logger *zap.Logger) (*Source, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Throttle == nil {
		cfg.Throttle = noThrottle{}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.ShowBrowser {
		opts = append(opts, chromedp.Flag("headless", false))
	} else {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Source{
		cfg:         cfg,
		searchURL:   base.String() + SearchServicesPath,
		linkSel:     fmt.Sprintf(`a[href='%s']`, SearchByLotPath),
		allocator:   allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}, nil
}

// Close shuts the browser down.
func (s *Source) Close() {
	s.allocCancel()
}

// Open runs the search for q in a new tab and loads the first result page.
func (s *Source) Open(ctx context.Context, q plan.Query) (plan.Session, error) {
	if err := s.cfg.Throttle.Wait(ctx, s.searchURL); err != nil {
		return nil, fmt.Errorf("search %s: %w", q, err)
	}
	tabCtx, tabCancel := chromedp.NewContext(s.allocator)
	sess := &session{
		tab:       tabCtx,
		cancel:    tabCancel,
		timeout:   s.cfg.NavigationTimeout,
		throttle:  s.cfg.Throttle,
		searchURL: s.searchURL,
		logger:    s.logger.With(zap.String("query", q.String())),
	}
	// Allocate the tab outside any per-step timeout so it lives until Close.
	if err := chromedp.Run(tabCtx); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("open browser tab: %w", err)
	}
	if err := sess.run(ctx, s.searchActions(q)...); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("search %s: %w", q, err)
	}
	if err := sess.load(ctx); err != nil {
		_ = sess.Close()
		return nil, err
	}
	sess.pageNo = 1
	return sess, nil
}

func (s *Source) searchActions(q plan.Query) []chromedp.Action {
	return []chromedp.Action{
		s.userAgentAction(),
		chromedp.Navigate(s.searchURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		navigation(chromedp.Click(s.linkSel, chromedp.ByQuery, chromedp.NodeVisible)),
		chromedp.WaitVisible(lotNumberSelector, chromedp.ByQuery),
		chromedp.SendKeys(lotNumberSelector, q.LotNumber(), chromedp.ByQuery),
		chromedp.SetValue(lotTypeSelector, strconv.Itoa(q.LotType().ID), chromedp.ByQuery),
		chromedp.SetValue(parishSelector, strconv.Itoa(q.Parish().ID), chromedp.ByQuery),
		navigation(chromedp.Click(submitSelector, chromedp.ByQuery, chromedp.NodeVisible)),
	}
}

func (s *Source) userAgentAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if s.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}

// navigation wraps an action that makes the tab load a new document and
// waits until that document has finished loading.
func navigation(trigger chromedp.Action) chromedp.Action {
	var loaded bool
	return chromedp.Tasks{
		chromedp.Evaluate(fmt.Sprintf("window.%s = true", staleMarker), nil),
		trigger,
		chromedp.Poll(
			fmt.Sprintf("!window.%s && document.readyState === 'complete'", staleMarker),
			&loaded,
			chromedp.WithPollingInterval(100*time.Millisecond),
		),
	}
}

func submitFormScript(page int) string {
	return fmt.Sprintf("window.submitform(%d)", page)
}

type session struct {
	tab       context.Context
	cancel    context.CancelFunc
	timeout   time.Duration
	throttle  Throttle
	searchURL string
	logger    *zap.Logger

	page   *results.Page
	pageNo int

	closeOnce sync.Once
	closeErr  error
}

// Summary implements plan.Session.
func (s *session) Summary(context.Context) (string, error) {
	return s.page.Summary()
}

// Rows implements plan.Session.
func (s *session) Rows(context.Context) ([]plan.RawRow, error) {
	return s.page.Rows(), nil
}

// Advance implements plan.Session.
func (s *session) Advance(ctx context.Context, nextPage int) (bool, error) {
	if !s.reachable(nextPage) {
		return false, nil
	}
	var hasPager bool
	if err := s.run(ctx, chromedp.Evaluate(`typeof window.submitform === 'function'`, &hasPager)); err != nil {
		return false, fmt.Errorf("probe pager: %w", err)
	}
	if !hasPager {
		return false, nil
	}
	if err := s.throttle.Wait(ctx, s.searchURL); err != nil {
		return false, err
	}
	if err := s.run(ctx, navigation(chromedp.Evaluate(submitFormScript(nextPage), nil))); err != nil {
		return false, fmt.Errorf("navigate to page %d: %w", nextPage, err)
	}
	if err := s.load(ctx); err != nil {
		return false, err
	}
	s.logger.Debug("advanced result page", zap.Int("from", s.pageNo), zap.Int("to", nextPage))
	s.pageNo = nextPage
	return true, nil
}

// Close implements plan.Session. Only the first call closes the tab.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		if s.tab != nil {
			if err := chromedp.Cancel(s.tab); err != nil && !errors.Is(err, context.Canceled) {
				s.closeErr = fmt.Errorf("close browser tab: %w", err)
			}
		}
		if s.cancel != nil {
			s.cancel()
		}
	})
	return s.closeErr
}

// reachable reports whether the pager offers nextPage. Pages without a
// recognisable pager are given the benefit of the doubt.
func (s *session) reachable(nextPage int) bool {
	if s.page == nil {
		return false
	}
	links := s.page.PageLinks()
	return len(links) == 0 || slices.Contains(links, nextPage)
}

func (s *session) load(ctx context.Context) error {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("read results page: %w", err)
	}
	page, err := results.Parse(html)
	if err != nil {
		return err
	}
	s.page = page
	return nil
}

// run executes actions in the session tab, bounded by the navigation
// timeout and by ctx.
func (s *session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.tab, s.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("chromedp run: %w", ctxErr)
		}
		return fmt.Errorf("chromedp run: %w", err)
	}
	return nil
}
