package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/aluiziolira/go-books-dashboard/config"
	"github.com/aluiziolira/go-books-dashboard/models"
	"github.com/aluiziolira/go-books-dashboard/parser"
	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const testBaseURL = "http://example.test/catalogue/page-{page}.html"

func newTestScraper(t *testing.T, transport http.RoundTripper) *Scraper {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BaseURL = testBaseURL

	s, err := NewScraper(cfg, NewMetrics(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	s.transport = transport
	return s
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "context timeout", err: context.DeadlineExceeded, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, expected: "connection"},
		{name: "forbidden", err: errors.New("Forbidden"), statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: errors.New("Not Found"), statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: errors.New("Too Many Requests"), statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "other", err: errors.New("some other error"), expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pageErr := &PageError{Page: 1, Category: classify(tt.err, tt.statusCode), Err: tt.err}
			if got := errorTypeLabel(pageErr); got != tt.expected {
				t.Fatalf("label(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestScrapeSinglePage(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "http://example.test/catalogue/page-1.html", htmlResponder(buildCatalogPage(1, 20)))

	s := newTestScraper(t, transport)
	result, err := s.Scrape(context.Background(), 1)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}

	if len(result.Records) == 0 || len(result.Records) > 20 {
		t.Fatalf("records = %d, want 1..20", len(result.Records))
	}
	if len(result.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", result.Diagnostics)
	}
	for i, r := range result.Records {
		if r.Title == "" {
			t.Fatalf("record %d has empty title", i)
		}
		price, err := parser.PriceToInt(r.Price)
		if err != nil || price < 0 {
			t.Fatalf("record %d price %q -> %d, %v", i, r.Price, price, err)
		}
		lower := strings.ToLower(r.Availability)
		if !strings.Contains(lower, "in stock") && !strings.Contains(lower, "out of stock") {
			t.Fatalf("record %d availability %q", i, r.Availability)
		}
	}

	first := result.Records[0]
	if first.Title != "Book 1" || first.Price != "£1.99" || first.Availability != "In stock (1 available)" {
		t.Fatalf("first record = %+v", first)
	}
	if got := testutil.ToFloat64(s.Metrics.ItemsScrapedTotal); got != 20 {
		t.Fatalf("items metric = %v, want 20", got)
	}
}

func TestScrapeKeepsPageOrderAndSurvivesFailures(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "http://example.test/catalogue/page-1.html", htmlResponder(buildCatalogPage(1, 3)))
	transport.RegisterResponder("GET", "http://example.test/catalogue/page-2.html", httpmock.NewStringResponder(http.StatusNotFound, "gone"))
	transport.RegisterResponder("GET", "http://example.test/catalogue/page-3.html", htmlResponder("<html><body><p>maintenance</p></body></html>"))
	transport.RegisterResponder("GET", "http://example.test/catalogue/page-4.html", htmlResponder(buildCatalogPage(4, 2)))

	s := newTestScraper(t, transport)
	result, err := s.Scrape(context.Background(), 4)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}

	if result.PageCount != 4 || result.FailedPages != 2 {
		t.Fatalf("pages=%d failed=%d, want 4/2", result.PageCount, result.FailedPages)
	}
	titles := make([]string, 0, len(result.Records))
	for _, r := range result.Records {
		titles = append(titles, r.Title)
	}
	want := "Book 1,Book 2,Book 3,Book 61,Book 62"
	if got := strings.Join(titles, ","); got != want {
		t.Fatalf("titles = %s, want %s", got, want)
	}

	if result.ErrorsByType["not_found"] != 1 || result.ErrorsByType["markup"] != 1 {
		t.Fatalf("errors by type = %v", result.ErrorsByType)
	}
	if len(result.Diagnostics) != 2 {
		t.Fatalf("diagnostics = %v", result.Diagnostics)
	}
	if models.KindOf(result.Diagnostics[0]) != models.KindAcquisition {
		t.Fatalf("page 2 kind = %q", models.KindOf(result.Diagnostics[0]))
	}
	if !errors.Is(result.Diagnostics[0], ErrNotFound) {
		t.Fatalf("page 2 error should match ErrNotFound: %v", result.Diagnostics[0])
	}
	if models.KindOf(result.Diagnostics[1]) != models.KindParse || !errors.Is(result.Diagnostics[1], ErrMissingList) {
		t.Fatalf("page 3 diagnostic = %v", result.Diagnostics[1])
	}
}

func TestScrapeSkipsIncompleteItems(t *testing.T) {
	page := `<html><body><ol class="row">
<li><article class="product_pod"><h3><a title="Complete">Complete</a></h3><p class="price_color">£10.00</p><p class="instock availability">In stock</p></article></li>
<li><article class="product_pod"><h3><a>No title</a></h3><p class="price_color">£11.00</p><p class="instock availability">In stock</p></article></li>
<li><article class="product_pod"><h3><a title="No price">No price</a></h3><p class="instock availability">In stock</p></article></li>
<li><article class="product_pod"><h3><a title="Sold out">Sold out</a></h3><p class="price_color">£12.00</p><p class="availability">Out of stock</p></article></li>
</ol></body></html>`

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "http://example.test/catalogue/page-1.html", htmlResponder(page))

	s := newTestScraper(t, transport)
	result, err := s.Scrape(context.Background(), 1)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}

	if len(result.Records) != 2 {
		t.Fatalf("records = %+v, want 2", result.Records)
	}
	if result.Records[1].Availability != "Out of stock" {
		t.Fatalf("fallback availability = %q", result.Records[1].Availability)
	}
	if result.SkippedItems != 2 || len(result.Diagnostics) != 2 {
		t.Fatalf("skipped=%d diagnostics=%v", result.SkippedItems, result.Diagnostics)
	}
	for _, d := range result.Diagnostics {
		if models.KindOf(d) != models.KindParse {
			t.Fatalf("diagnostic kind = %q", models.KindOf(d))
		}
	}
}

func TestScrapeStopsWhenContextCancelled(t *testing.T) {
	transport := httpmock.NewMockTransport()
	s := newTestScraper(t, transport)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.Scrape(ctx, 3)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if result.PageCount != 0 || len(result.Records) != 0 {
		t.Fatalf("expected no pages, got %+v", result)
	}
	if len(result.Diagnostics) != 1 || !errors.Is(result.Diagnostics[0], context.Canceled) {
		t.Fatalf("diagnostics = %v", result.Diagnostics)
	}
	if transport.GetTotalCallCount() != 0 {
		t.Fatalf("no request expected after cancellation")
	}
}

func TestScrapeRejectsNonPositivePageCount(t *testing.T) {
	s := newTestScraper(t, httpmock.NewMockTransport())
	if _, err := s.Scrape(context.Background(), 0); err == nil {
		t.Fatalf("expected error for zero pages")
	}
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

// buildCatalogPage mimics the listing markup: an ordered list of product pods.
func buildCatalogPage(page, items int) string {
	var builder strings.Builder
	builder.WriteString("<html><body><section><ol class=\"row\">")

	for i := 1; i <= items; i++ {
		id := (page-1)*20 + i
		builder.WriteString("<li class=\"col-xs-6\"><article class=\"product_pod\">")
		fmt.Fprintf(&builder, "<h3><a href=\"book-%d/index.html\" title=\"Book %d\">Book %d...</a></h3>", id, id, id)
		builder.WriteString("<div class=\"product_price\">")
		fmt.Fprintf(&builder, "<p class=\"price_color\">&pound;%d.99</p>", id)
		fmt.Fprintf(&builder, "<p class=\"instock availability\">\n    <i class=\"icon-ok\"></i>\n    In stock (%d available)\n</p>", id)
		builder.WriteString("</div></article></li>")
	}

	builder.WriteString("</ol></section></body></html>")
	return builder.String()
}
