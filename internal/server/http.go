package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizbank/internal/auth"
	"github.com/gokatarajesh/quizbank/internal/auth/jwt"
	"github.com/gokatarajesh/quizbank/internal/logging"
	"github.com/gokatarajesh/quizbank/internal/question"
)

// DependencyCheck pings one upstream (database, cache).
type DependencyCheck func(ctx context.Context) error

// Routes carries the handlers mounted by NewHTTPServer. Nil members are skipped.
type Routes struct {
	Questions *question.HTTPHandlers
	Feed      http.Handler
	Metrics   http.Handler
	Tokens    auth.TokenValidator
	Checks    map[string]DependencyCheck
}

// NewHTTPServer wires health, metrics, question and feed routes for the API service.
func NewHTTPServer(addr string, logger zerolog.Logger, routes Routes) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if routes.Metrics != nil {
		mux.Handle("GET /metrics", routes.Metrics)
	}

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pingDependencies(ctx, routes.Checks); err != nil {
			log := logging.FromContext(ctx)
			log.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	read, write := passthrough, passthrough
	if routes.Tokens != nil {
		authn := auth.RequireAuth(routes.Tokens, logger)
		operator := auth.RequireRole(jwt.RoleOperator)
		read = authn
		write = func(next http.Handler) http.Handler { return authn(operator(next)) }
	} else {
		logger.Warn().Msg("no token validator configured; API routes are unauthenticated")
	}

	if routes.Questions != nil {
		routes.Questions.Register(mux, read, write)
	}

	if routes.Feed != nil {
		mux.Handle("GET /ws/questions", read(routes.Feed))
	} else {
		mux.HandleFunc("GET /ws/questions", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "question feed not configured", http.StatusNotImplemented)
		})
	}

	return &http.Server{
		Addr:              addr,
		Handler:           requestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func passthrough(next http.Handler) http.Handler { return next }

func pingDependencies(ctx context.Context, checks map[string]DependencyCheck) error {
	var errs []error
	for name, check := range checks {
		if err := check(ctx); err != nil {
			errs = append(errs, errors.New(name+": "+err.Error()))
		}
	}
	return errors.Join(errs...)
}

// requestLogger injects a request-scoped logger and logs one line per request.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := logger.With().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Logger()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(logging.IntoContext(r.Context(), reqLogger)))

			reqLogger.Debug().
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("request handled")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack keeps WebSocket upgrades working through the recorder.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}
