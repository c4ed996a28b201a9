// Package routes wires the dataset layer onto HTTP. Handlers only
// translate query parameters into validated specs, call the repository,
// and render JSON; everything interesting happens below them.
package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/afridata/datalayer/dataset"
	appmw "github.com/afridata/datalayer/internal/http/middleware"
	"github.com/afridata/datalayer/query"
	"github.com/afridata/datalayer/repo"
)

type Server struct {
	Router      *chi.Mux
	Repo        *repo.Repository
	MaxLimit    int
	Version     string
	Environment string
}

type ServerOptions struct {
	Repo        *repo.Repository
	AuthToken   string
	MaxLimit    int
	Version     string
	Environment string
	Logger      zerolog.Logger
	// Registry backs GET /metrics. Nil disables the endpoint.
	Registry *prometheus.Registry
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(hlog.NewHandler(opts.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(appmw.CorrelationID)
	r.Use(chimw.Recoverer)

	s := &Server{
		Router:      r,
		Repo:        opts.Repo,
		MaxLimit:    opts.MaxLimit,
		Version:     opts.Version,
		Environment: opts.Environment,
	}

	r.Get("/health", s.handleHealth("ok"))
	r.Get("/health/live", s.handleHealth("live"))
	r.Get("/health/ready", s.handleHealth("ready"))
	if opts.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(pr chi.Router) {
		pr.Use(appmw.RequireBearer(opts.AuthToken))
		pr.Get("/data/prices", s.handleListPrices)
		pr.Get("/data/realestate", s.handleListRealEstate)
		pr.Get("/data/providers", s.handleListProviders)
		pr.Get("/analytics/provider-summary", s.handleProviderSummary)
	})

	return s
}

func (s *Server) handleHealth(status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{
			"status":      status,
			"service":     "datalayer",
			"version":     s.Version,
			"environment": s.Environment,
		})
	}
}

func (s *Server) handleListPrices(w http.ResponseWriter, r *http.Request) {
	spec, err := query.ValidatePrices(paramsFrom(r), s.MaxLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	records, err := s.Repo.ListPrices(r.Context(), spec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleListRealEstate(w http.ResponseWriter, r *http.Request) {
	spec, err := query.ValidateRealEstate(paramsFrom(r), s.MaxLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	records, err := s.Repo.ListRealEstate(r.Context(), spec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	ref := dataset.Ref{
		Domain:  dataset.DomainProviders,
		Country: query.Normalize(r.URL.Query().Get("country")),
	}
	names, err := s.Repo.ListProviders(r.Context(), ref)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleProviderSummary(w http.ResponseWriter, r *http.Request) {
	spec, err := query.ValidateAnalytics(paramsFrom(r), s.MaxLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	results, err := s.Repo.AggregateProviderMetrics(r.Context(), spec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

func paramsFrom(r *http.Request) query.Params {
	q := r.URL.Query()
	return query.Params{
		Provider:    q.Get("provider"),
		Country:     q.Get("country"),
		Region:      q.Get("region"),
		DateFrom:    q.Get("date_from"),
		DateTo:      q.Get("date_to"),
		Limit:       q.Get("limit"),
		MinPrice:    q.Get("min_price"),
		MaxPrice:    q.Get("max_price"),
		MinBedrooms: q.Get("min_bedrooms"),
		MaxBedrooms: q.Get("max_bedrooms"),
		Metric:      q.Get("metric"),
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already gone; an encode failure here can only be
	// a dropped connection.
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the error taxonomy onto status codes: validation 400,
// dataset missing 404, dataset unreadable 422, anything else 500. Bodies
// carry a detail message that names the dataset but never a file path.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	detail := "internal server error"

	var verr *query.ValidationError
	var derr *dataset.Error
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		detail = verr.Error()
	case errors.As(err, &derr):
		if derr.Kind == dataset.KindNotFound {
			status = http.StatusNotFound
		} else {
			status = http.StatusUnprocessableEntity
		}
		detail = derr.Error()
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("unclassified error")
	}
	s.writeJSON(w, status, map[string]string{"detail": detail})
}
