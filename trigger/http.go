package trigger

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raikasdev/howareya/core/logger"
	"github.com/raikasdev/howareya/core/model"
)

const maxBodyBytes = 1 << 16

// Server exposes the HTTP triggers and the metrics endpoint.
type Server struct {
	runner   *Runner
	secret   string
	log      logger.Logger
	gatherer prometheus.Gatherer
	requests *prometheus.CounterVec
	validate *validator.Validate

	mu   sync.Mutex
	addr string
}

// NewServer creates a server that registers its metrics on the default
// Prometheus registerer and serves the default gatherer.
func NewServer(cfg Config, runner *Runner, log logger.Logger) *Server {
	return NewServerWithRegistry(cfg, runner, log, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewServerWithRegistry creates a server using reg for its own collectors
// and gatherer for /metrics. Nil values fall back to the defaults.
func NewServerWithRegistry(cfg Config, runner *Runner, log logger.Logger, reg prometheus.Registerer, gatherer prometheus.Gatherer) *Server {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	cfg.SetDefaults()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trigger_http_requests_total",
		Help: "HTTP trigger requests by route and status code",
	}, []string{"route", "status"})
	if err := reg.Register(requests); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if exist, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				requests = exist
			} else {
				log.Errorf("existing collector for trigger_http_requests_total has wrong type %T", are.ExistingCollector)
			}
		}
	}

	return &Server{
		runner:   runner,
		secret:   cfg.Secret,
		log:      log,
		gatherer: gatherer,
		requests: requests,
		validate: validator.New(),
		addr:     cfg.Address,
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.countRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			s.log.Errorf("write health response: %v", err)
		}
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.requireSecret)
			r.Get("/cron/auto-book", s.handleAutoBook)
			r.Post("/cron/auto-book", s.handleAutoBook)
			r.Post("/schedule/contact", s.handleSchedule)
		})
	})
	return r
}

// requireSecret rejects requests whose Authorization header is not
// "Bearer <secret>".
func (s *Server) requireSecret(next http.Handler) http.Handler {
	want := []byte("Bearer " + s.secret)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := []byte(r.Header.Get("Authorization"))
		if s.secret == "" || subtle.ConstantTimeCompare(got, want) != 1 {
			s.respondError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	})
}

// Runs outlive the request: a client that disconnects does not abort a
// half-finished run.
func (s *Server) handleAutoBook(w http.ResponseWriter, r *http.Request) {
	report, err := s.runner.Sweep(context.WithoutCancel(r.Context()), SourceHTTP)
	if err != nil {
		s.log.Errorf("http sweep: %v", err)
		s.respondError(w, r, http.StatusInternalServerError, "sweep failed")
		return
	}
	s.respondJSON(w, http.StatusOK, newReportView(report))
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req model.ScheduleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "id and userId are required")
		return
	}
	report, err := s.runner.Single(context.WithoutCancel(r.Context()), req, SourceHTTP)
	switch {
	case errors.Is(err, ErrContactNotFound):
		s.respondError(w, r, http.StatusNotFound, "contact not found")
		return
	case err != nil:
		s.log.Errorf("http schedule contact %d: %v", req.ContactID, err)
		s.respondError(w, r, http.StatusInternalServerError, "schedule failed")
		return
	}
	s.respondJSON(w, http.StatusOK, newReportView(report))
}

// Addr returns the listening address once Start has been called.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start runs the HTTP server until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("shutdown server: %v", err)
		}
		cancel()
	}()
	s.log.Infof("trigger server listening on %s", ln.Addr())
	err = srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
