package turborest

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// ControllerContext is handed to every controller invocation: the resolved
// identity plus the request-scoped logger. No process-wide state is involved.
type ControllerContext struct {
	Identity Identity
	Logger   *zap.Logger
}

// ControllerFunc is the operation signature the dispatcher binds to routes.
// The result is a PayloadRecord, a list of PayloadRecord, or a bool for
// delete-style operations.
type ControllerFunc func(r *http.Request, cc *ControllerContext) (any, error)

// Dispatcher adapts inbound requests to controller functions uniformly, so
// every registered route shares one serialization and error-mapping path.
type Dispatcher struct {
	logger *zap.Logger
}

// NewDispatcher constructs a Dispatcher with its logger collaborator.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		panic("turborest: dispatcher requires a logger")
	}
	return &Dispatcher{logger: logger}
}

// Handle wraps a controller function into an http.HandlerFunc. A successful
// result is serialized as JSON with successStatus; a RestError renders its
// own response; anything else becomes the ServerError catch-all. Per-request
// failures never escape this handler.
func (d *Dispatcher) Handle(successStatus int, fn ControllerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := LoggerFromContext(r.Context(), d.logger)
		logger.Debug("dispatch", zap.String("method", r.Method), zap.String("path", r.URL.Path))

		identity, _ := IdentityFromContext(r.Context())

		result, err := fn(r, &ControllerContext{Identity: identity, Logger: logger})
		if err != nil {
			d.writeError(w, logger, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(successStatus)
		if encodeErr := json.NewEncoder(w).Encode(result); encodeErr != nil {
			logger.Error("response serialization failed", zap.Error(encodeErr))
		}

		logger.Debug("dispatched", zap.Int("status", successStatus))
	}
}

func (d *Dispatcher) writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	restErr, ok := AsRestError(err)
	if !ok {
		restErr = NewServerError(err)
	}

	if restErr.Status() >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("exception", string(restErr.Kind)), zap.Error(err))
	} else {
		logger.Warn("request failed", zap.String("exception", string(restErr.Kind)), zap.Error(err))
	}

	restErr.WriteResponse(w)
}
