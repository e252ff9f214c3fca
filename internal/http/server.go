package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"registrar/internal/apperr"
	"registrar/internal/auth"
	"registrar/internal/config"
	"registrar/internal/model"
	"registrar/internal/patch"
	"registrar/internal/ratelimit"
)

const maxBodyBytes = 1 << 20

var errInvalidJSON = apperr.Validation("Invalid JSON payload.")

type AdminStore interface {
	CountAdministrators(ctx context.Context) (int, error)
	GetAdministratorByUsername(ctx context.Context, username string) (model.Administrator, error)
	GetAdministrator(ctx context.Context, id string) (model.Administrator, error)
	CreateAdministrator(ctx context.Context, username, passwordHash string) (model.Administrator, error)
	CreateFirstAdministrator(ctx context.Context, username, passwordHash string) (model.Administrator, error)
}

type EntityStore[T any] interface {
	List(ctx context.Context, term string) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, set []patch.Assignment) (T, error)
	Update(ctx context.Context, id string, set []patch.Assignment) (T, error)
	Delete(ctx context.Context, id string) error
}

type Stores struct {
	Admins   AdminStore
	Students EntityStore[model.Student]
	Courses  EntityStore[model.Course]
	Teachers EntityStore[model.Teacher]
}

type Server struct {
	cfg      config.Config
	stores   Stores
	tokens   *auth.TokenService
	log      *logrus.Logger
	limiter  ratelimit.Limiter
	validate *validator.Validate
	registry *prometheus.Registry
	metrics  *metrics
}

// NewServer fails when the token secret is missing. limiter may be nil.
func NewServer(cfg config.Config, stores Stores, log *logrus.Logger, limiter ratelimit.Limiter) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.New()
	}
	registry := prometheus.NewRegistry()
	return &Server{
		cfg:      cfg,
		stores:   stores,
		tokens:   tokens,
		log:      log,
		limiter:  limiter,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		registry: registry,
		metrics:  newMetrics(registry),
	}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logRequests, s.recoverer, preflight)
	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api/auth", func(r chi.Router) {
		r.NotFound(notFound)
		r.MethodNotAllowed(methodNotAllowed)
		r.With(s.throttle).Post("/login", s.handle(s.handleLogin))
		r.With(s.throttle).Post("/register", s.handle(s.handleRegister))
		r.With(s.authMiddleware).Get("/me", s.handle(s.handleMe))
	})

	mountResource(r, s, "/api/students", studentResource(s.stores.Students))
	mountResource(r, s, "/api/courses", courseResource(s.stores.Courses))
	mountResource(r, s, "/api/teachers", teacherResource(s.stores.Teachers))

	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods(corsMethods),
		handlers.AllowedHeaders(corsHeaders),
		handlers.IgnoreOptions(),
	)(r)
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle writes the error returned by fn. Anything that is not an *apperr.Error
// is logged and answered with a generic 500.
func (s *Server) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			s.writeAppError(w, r, err)
		}
	}
}

func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)
	if appErr.Kind == apperr.KindInternal {
		requestLogger(r.Context(), s.log).WithError(err).Error("request failed")
	}
	writeError(w, appErr.Kind.Status(), appErr.Message)
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "Not found.")
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, apperr.MethodNotAllowed().Message)
}

// decodeJSON treats an empty body as an empty object.
func decodeJSON(w http.ResponseWriter, r *http.Request, out interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Validation("Request body is too large.")
		}
		return errInvalidJSON
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errInvalidJSON
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
