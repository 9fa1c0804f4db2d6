package internalhttp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/lomoval/calendar-helper/internal/app"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const (
	sessionCookie  = "session_id"
	timezoneHeader = "X-Timezone"
)

type Config struct {
	Host    string
	Port    int
	Uploads UploadConfig
}

type route struct {
	method  string
	path    string
	handler runtime.HandlerFunc
}

type Server struct {
	srv      *http.Server
	addr     string
	app      *app.App
	uploads  UploadConfig
	version  string
	gatherer prometheus.Gatherer
}

func NewServer(config Config, application *app.App, version string, gatherer prometheus.Gatherer) *Server {
	addr := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	return &Server{
		addr:     addr,
		srv:      &http.Server{Addr: addr},
		app:      application,
		uploads:  config.Uploads.withDefaults(),
		version:  version,
		gatherer: gatherer,
	}
}

// Handler registers the routes on mux, a new one when nil.
func (s *Server) Handler(mux *runtime.ServeMux) (http.Handler, error) {
	if mux == nil {
		mux = runtime.NewServeMux()
	}
	routes := []route{
		{http.MethodGet, "/api/config", s.config},
		{http.MethodPost, "/process", s.process},
		{http.MethodPost, "/correct", s.correct},
		{http.MethodPost, "/download-ics", s.downloadICS},
		{http.MethodPost, "/clear", s.clear},
		{http.MethodGet, "/healthz", func(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
			w.Write([]byte("ok"))
		}},
	}
	if s.gatherer != nil {
		metrics := promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
		routes = append(routes, route{http.MethodGet, "/metrics", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
			metrics.ServeHTTP(w, r)
		}})
	}
	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.path, r.handler); err != nil {
			return nil, fmt.Errorf("failed to register %s %s: %w", r.method, r.path, err)
		}
	}
	return loggingMiddleware(mux), nil
}

func (s *Server) Start(_ context.Context, mux *runtime.ServeMux) error {
	handler, err := s.Handler(mux)
	if err != nil {
		return err
	}
	s.srv.Handler = handler

	log.Printf("starting http server on %s", s.addr)
	err = s.srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
