package turborest

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// maxRequestBytes caps request bodies; payload records are small documents.
const maxRequestBytes = 1 << 20

// AppServer is the REST server shell around the dispatcher: routing, shared
// middleware, identity resolution, and lifecycle. Applications register their
// controllers on it and call Run.
type AppServer struct {
	cfg        Config
	logger     *zap.Logger
	dispatcher *Dispatcher
	router     chi.Router
}

// NewAppServer assembles the middleware stack and an empty router. The
// identity middleware is mandatory: every registered handler runs behind it.
func NewAppServer(cfg Config, logger *zap.Logger, identity func(http.Handler) http.Handler) *AppServer {
	if logger == nil {
		panic("turborest: server requires a logger")
	}
	if identity == nil {
		panic("turborest: server requires an identity middleware")
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestSize(maxRequestBytes))
	router.Use(RequestLogger(logger))
	if cfg.IsDevelopment() {
		router.Use(AllowCrossOrigin)
	}
	router.Use(identity)

	return &AppServer{
		cfg:        cfg,
		logger:     logger,
		dispatcher: NewDispatcher(logger),
		router:     router,
	}
}

// Router exposes the underlying chi router for non-standard wiring.
func (s *AppServer) Router() chi.Router {
	return s.router
}

// AddHandlerGet registers a controller function on a GET route (200).
func (s *AppServer) AddHandlerGet(pattern string, fn ControllerFunc) {
	s.router.Get(pattern, s.dispatcher.Handle(http.StatusOK, fn))
}

// AddHandlerPost registers a controller function on a POST route (201).
func (s *AppServer) AddHandlerPost(pattern string, fn ControllerFunc) {
	s.router.Post(pattern, s.dispatcher.Handle(http.StatusCreated, fn))
}

// AddHandlerPut registers a controller function on a PUT route (200).
func (s *AppServer) AddHandlerPut(pattern string, fn ControllerFunc) {
	s.router.Put(pattern, s.dispatcher.Handle(http.StatusOK, fn))
}

// AddHandlerDelete registers a controller function on a DELETE route (200).
func (s *AppServer) AddHandlerDelete(pattern string, fn ControllerFunc) {
	s.router.Delete(pattern, s.dispatcher.Handle(http.StatusOK, fn))
}

// RegisterCollection mounts the standard CRUD surface of a controller under
// the given URL prefix, plus the per-tenant liveness probe.
func (s *AppServer) RegisterCollection(prefix string, c *Controller) {
	s.AddHandlerGet(prefix, c.QueryByExample)
	s.AddHandlerGet(prefix+"/{id}", c.GetByID)
	s.AddHandlerPost(prefix, c.Insert)
	s.AddHandlerPut(prefix+"/{id}", c.Update)
	s.AddHandlerDelete(prefix+"/{id}", c.Delete)
	s.AddHandlerGet(prefix+"/ping/{tenant}", c.HealthCheck)
}

// Run serves until the context is cancelled or SIGINT/SIGTERM arrives, then
// shuts down gracefully within the configured timeout.
func (s *AppServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ":" + s.cfg.ListenPort,
		Handler: s.router,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening",
			zap.String("port", s.cfg.ListenPort),
			zap.String("environment", s.cfg.Environment))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
