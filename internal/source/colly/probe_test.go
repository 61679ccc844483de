package collyprobe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchServicesPage = `<html><body>
<a href="/lto/actions/initializeSearchByParishSettlementLot">Search Plans by Parish/Settlement/Lot</a>
</body></html>`

func newRegistry(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lto/jsp/documentSearchServices.jsp" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckUp(t *testing.T) {
	t.Parallel()

	srv := newRegistry(t, http.StatusOK, searchServicesPage)
	p := New(Config{BaseURL: srv.URL + "/", Timeout: time.Second}, nil)

	st, err := p.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Up)
	assert.Equal(t, http.StatusOK, st.StatusCode)
	assert.Equal(t, srv.URL+"/lto/jsp/documentSearchServices.jsp", st.URL)

	// A second check revisits the same URL.
	st, err = p.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Up)
}

func TestCheckMaintenancePage(t *testing.T) {
	t.Parallel()

	srv := newRegistry(t, http.StatusOK, `<h2>Site is down for scheduled maintenance</h2>`)
	st, err := New(Config{BaseURL: srv.URL}, nil).Check(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Up)
	assert.Contains(t, st.Reason, "scheduled maintenance")
}

func TestCheckServerError(t *testing.T) {
	t.Parallel()

	srv := newRegistry(t, http.StatusServiceUnavailable, "busy")
	st, err := New(Config{BaseURL: srv.URL}, nil).Check(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Up)
	assert.Equal(t, http.StatusServiceUnavailable, st.StatusCode)
}

func TestCheckUnreachable(t *testing.T) {
	t.Parallel()

	srv := newRegistry(t, http.StatusOK, searchServicesPage)
	base := srv.URL
	srv.Close()

	_, err := New(Config{BaseURL: base, Timeout: time.Second}, nil).Check(context.Background())
	require.Error(t, err)
}

func TestCheckCanceled(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-block
	}))
	t.Cleanup(func() {
		close(block)
		srv.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{BaseURL: srv.URL}, nil).Check(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestConfigureHooks(t *testing.T) {
	t.Parallel()

	p := New(Config{}, nil)
	var (
		st       Status
		fetchErr error
	)
	hooks := &stubHooks{}
	p.configureHooks(hooks, &st, &fetchErr, time.Now())
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	target, err := url.Parse("https://tprmb.ca/lto/jsp/documentSearchServices.jsp")
	require.NoError(t, err)
	req := &colly.Request{URL: target}
	hooks.onError(&colly.Response{StatusCode: http.StatusBadGateway, Request: req}, errors.New("bad gateway"))
	assert.False(t, st.Up)
	assert.Equal(t, http.StatusBadGateway, st.StatusCode)
	assert.NoError(t, fetchErr)

	hooks.onError(nil, errors.New("dial tcp: refused"))
	assert.EqualError(t, fetchErr, "dial tcp: refused")
}

type stubHooks struct {
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
