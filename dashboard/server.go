package dashboard

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-books-dashboard/chart"
	"github.com/aluiziolira/go-books-dashboard/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed templates/*.html
var templateFS embed.FS

const exportFilename = "filtered_books.csv"

// Server exposes a Dashboard over HTTP. Every handler holds the same lock,
// so one action or render runs at a time.
type Server struct {
	dash     *Dashboard
	gatherer prometheus.Gatherer
	tmpl     *template.Template
	mu       sync.Mutex
	last     *Report
}

// NewServer builds the HTTP front end. gatherer backs /metrics; nil disables
// the endpoint.
func NewServer(d *Dashboard, gatherer prometheus.Gatherer) (*Server, error) {
	tmpl, err := template.New("index.html").Funcs(template.FuncMap{
		"cell":     cellText,
		"kind":     models.KindOf,
		"printf1":  func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) },
		"loadedAt": func(t time.Time) string { return t.Format(time.RFC1123) },
	}).ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Server{dash: d, gatherer: gatherer, tmpl: tmpl}, nil
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /actions/{action}", s.handleAction)
	mux.HandleFunc("GET /export.csv", s.handleExport)
	mux.HandleFunc("GET /charts/{file}", s.handleChart)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	slog.Info("dashboard listening", slog.String("addr", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

type pageData struct {
	View   *View
	Params Params
	Report *Report
	// Query carries the view controls onto action and export links.
	Query template.URL
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	params := parseParams(r.URL.Query())
	data := pageData{
		View:   s.dash.Snapshot(params),
		Params: params,
		Report: s.last,
	}
	if q := encodeParams(params); q != "" {
		data.Query = template.URL("?" + q)
	}

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		slog.Error("render page", slog.Any("error", err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.dash.Run(r.Context(), r.PathValue("action"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.last = report

	target := "/"
	if q := r.URL.RawQuery; q != "" {
		target += "?" + q
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := s.dash.Export(&buf, parseParams(r.URL.Query())); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename))
	buf.WriteTo(w)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok := strings.CutSuffix(r.PathValue("file"), ".svg")
	kind := chart.Kind(name)
	if !ok || (kind != chart.KindBar && kind != chart.KindHistogram && kind != chart.KindBox) {
		http.NotFound(w, r)
		return
	}

	var buf bytes.Buffer
	if err := s.dash.Chart(&buf, kind); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	buf.WriteTo(w)
}

func parseParams(q url.Values) Params {
	p := Params{Search: q.Get("search")}
	if v, err := strconv.Atoi(q.Get("max_price")); err == nil {
		p.MaxPrice = &v
	}
	switch q.Get("advanced") {
	case "on", "1", "true":
		p.Advanced = true
	}
	return p
}

func encodeParams(p Params) string {
	q := url.Values{}
	if p.MaxPrice != nil {
		q.Set("max_price", strconv.Itoa(*p.MaxPrice))
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Advanced {
		q.Set("advanced", "on")
	}
	return q.Encode()
}

func cellText(c sql.NullString) string {
	if !c.Valid {
		return ""
	}
	return c.String
}
