package dashboard

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, csv string) *httptest.Server {
	t.Helper()
	cfg := testConfig(t)
	if csv != "" {
		writeFile(t, cfg.DataFile, csv)
	}
	reg := prometheus.NewRegistry()
	d, err := New(cfg, WithSource(&stubSource{}), WithRegistry(reg))
	require.NoError(t, err)

	srv, err := NewServer(d, reg)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func noRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServerEmptySession(t *testing.T) {
	ts := newTestServer(t, "")

	resp, body := get(t, ts.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "No data loaded")

	resp, _ = get(t, ts.URL+"/export.csv")
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = get(t, ts.URL+"/charts/bar.svg")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestServerActionRedirectsAndRenders(t *testing.T) {
	ts := newTestServer(t, sampleCSV)
	client := &http.Client{CheckRedirect: noRedirect}

	resp, err := client.Post(ts.URL+"/actions/load-csv?search=light", "application/x-www-form-urlencoded", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/?search=light", resp.Header.Get("Location"))

	resp, body := get(t, ts.URL+"/?search=light&advanced=on")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Data loaded from CSV!")
	require.Contains(t, body, "Showing 2 books priced under 50")
	require.Contains(t, body, "Found 3 books in stock")
	require.Contains(t, body, "Found 1 matching books")
	require.Contains(t, body, "/charts/histogram.svg")
	require.Contains(t, body, "Data shape: (5, 3)")
}

func TestServerUnknownAction(t *testing.T) {
	ts := newTestServer(t, sampleCSV)

	resp, err := http.Post(ts.URL+"/actions/truncate", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerExportAndCharts(t *testing.T) {
	ts := newTestServer(t, sampleCSV)
	resp, err := http.Post(ts.URL+"/actions/load-csv", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()

	resp, body := get(t, ts.URL+"/export.csv?max_price=48")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	require.Contains(t, resp.Header.Get("Content-Disposition"), "filtered_books.csv")
	require.Equal(t, "Book_Name,price,availability\nSharp Objects,47,\n", body)

	for _, kind := range []string{"bar", "histogram", "box"} {
		resp, body := get(t, ts.URL+"/charts/"+kind+".svg")
		require.Equal(t, http.StatusOK, resp.StatusCode, kind)
		require.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
		require.True(t, strings.Contains(body, "<svg"), kind)
	}

	resp, _ = get(t, ts.URL+"/charts/pie.svg")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerMetricsAndHealth(t *testing.T) {
	ts := newTestServer(t, sampleCSV)
	resp, err := http.Post(ts.URL+"/actions/load-db", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()

	resp, body := get(t, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `dashboard_actions_total{action="load-db",outcome="failure"} 1`)

	resp, body = get(t, ts.URL+"/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok\n", body)
}

func TestParseParams(t *testing.T) {
	p := parseParams(map[string][]string{"max_price": {"x"}, "search": {" a "}, "advanced": {"1"}})
	require.Nil(t, p.MaxPrice)
	require.Equal(t, " a ", p.Search)
	require.True(t, p.Advanced)

	n := 12
	require.Equal(t, "advanced=on&max_price=12&search=a+b", encodeParams(Params{MaxPrice: &n, Search: "a b", Advanced: true}))
}
