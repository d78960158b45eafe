package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-books-dashboard/config"
	"github.com/aluiziolira/go-books-dashboard/models"
	"github.com/aluiziolira/go-books-dashboard/parser"
	"github.com/gocolly/colly/v2"
)

// Scraper fetches catalogue pages one after another and extracts listings.
// Each Scrape call builds its own collector, so no connection or visited-URL
// state outlives the call.
type Scraper struct {
	cfg       *config.Config
	host      string
	transport http.RoundTripper
	Metrics   *Metrics
}

// NewScraper builds a scraper configured from cfg. metrics may be nil.
func NewScraper(cfg *config.Config, metrics *Metrics) (*Scraper, error) {
	parsed, err := url.Parse(cfg.PageURL(1))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	return &Scraper{
		cfg:     cfg,
		host:    parsed.Hostname(),
		Metrics: metrics,
	}, nil
}

type pageState struct {
	number  int
	status  int
	found   bool
	records []models.BookRecord
	skipped []error
}

// Scrape fetches pages 1..pageCount. Failures are recorded per page in the
// result diagnostics and the remaining pages are still fetched. The returned
// error is reserved for unusable arguments.
func (s *Scraper) Scrape(ctx context.Context, pageCount int) (*models.ScrapeResult, error) {
	if pageCount <= 0 {
		return nil, fmt.Errorf("page count must be positive, got %d", pageCount)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	collector, err := s.newCollector()
	if err != nil {
		return nil, err
	}

	var page *pageState
	s.configureHandlers(collector, func() *pageState { return page })

	result := &models.ScrapeResult{
		StartTime:    time.Now(),
		ErrorsByType: make(map[string]int),
	}

	for n := 1; n <= pageCount; n++ {
		if err := ctx.Err(); err != nil {
			result.Diagnostics = append(result.Diagnostics,
				models.Acquisition("scrape", fmt.Errorf("stopped before page %d: %w", n, err)))
			break
		}

		page = &pageState{number: n}
		pageURL := s.cfg.PageURL(n)
		result.PageCount++
		result.RequestCount++

		if err := collector.Visit(pageURL); err != nil {
			pageErr := &PageError{
				Page:     n,
				URL:      pageURL,
				Status:   page.status,
				Category: classify(err, page.status),
				Err:      err,
			}
			s.recordFailure(result, models.Acquisition(fmt.Sprintf("fetch page %d", n), pageErr))
			continue
		}

		if !page.found {
			pageErr := &PageError{Page: n, URL: pageURL, Err: ErrMissingList}
			s.recordFailure(result, models.Parse(fmt.Sprintf("parse page %d", n), pageErr))
			continue
		}

		result.Records = append(result.Records, page.records...)
		result.SkippedItems += len(page.skipped)
		result.Diagnostics = append(result.Diagnostics, page.skipped...)

		slog.Debug("scraped page",
			slog.Int("page", n),
			slog.Int("records", len(page.records)),
			slog.Int("skipped", len(page.skipped)),
		)
	}

	result.EndTime = time.Now()
	return result, nil
}

func (s *Scraper) newCollector() (*colly.Collector, error) {
	collector := colly.NewCollector(
		colly.AllowedDomains(s.host),
		colly.UserAgent(s.cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(s.cfg.Timeout)
	collector.IgnoreRobotsTxt = !s.cfg.RespectRobotsTxt
	if s.transport != nil {
		collector.WithTransport(s.transport)
	} else {
		collector.WithTransport(&http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   s.cfg.Timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        4,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		})
	}

	if err := collector.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 1}); err != nil {
		return nil, fmt.Errorf("configure limits: %w", err)
	}
	return collector, nil
}

func (s *Scraper) configureHandlers(collector *colly.Collector, current func() *pageState) {
	collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		s.Metrics.IncRequest("started")
	})

	collector.OnResponse(func(r *colly.Response) {
		s.Metrics.IncRequest("completed")
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			s.Metrics.ObserveDuration(time.Since(start))
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			current().status = r.StatusCode
		}
	})

	// Only the first listing container on a page is read.
	collector.OnHTML("ol.row", func(e *colly.HTMLElement) {
		page := current()
		if page.found {
			return
		}
		page.found = true

		e.DOM.Find("article.product_pod").Each(func(i int, item *goquery.Selection) {
			record, err := extractRecord(item)
			if err != nil {
				s.Metrics.IncSkipped()
				page.skipped = append(page.skipped,
					models.Parse(fmt.Sprintf("parse page %d item %d", page.number, i+1), err))
				return
			}
			s.Metrics.IncItems()
			page.records = append(page.records, record)
		})
	})
}

func (s *Scraper) recordFailure(result *models.ScrapeResult, err error) {
	category := errorTypeLabel(err)
	result.FailedPages++
	result.ErrorsByType[category]++
	result.Diagnostics = append(result.Diagnostics, err)
	s.Metrics.IncError(category)

	slog.Error("page failed",
		slog.String("category", category),
		slog.Any("error", err),
	)
}

func extractRecord(item *goquery.Selection) (models.BookRecord, error) {
	availability := item.Find("p.instock.availability").First()
	if availability.Length() == 0 {
		availability = item.Find("p.availability").First()
	}

	record := models.BookRecord{
		Title:        strings.TrimSpace(item.Find("h3 a").First().AttrOr("title", "")),
		Price:        strings.TrimSpace(item.Find("p.price_color").First().Text()),
		Availability: parser.NormalizeAvailability(availability.Text()),
	}
	if err := parser.ValidateRecord(record); err != nil {
		return models.BookRecord{}, err
	}
	return record, nil
}
