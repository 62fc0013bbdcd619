package turborest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, cfg Config) *AppServer {
	t.Helper()
	return NewAppServer(cfg, zap.NewNop(), StaticIdentity(Identity{User: "tester", Tenant: "t1"}))
}

func TestAppServer_RequiresCollaborators(t *testing.T) {
	assert.Panics(t, func() { NewAppServer(Config{}, nil, StaticIdentity(Identity{})) })
	assert.Panics(t, func() { NewAppServer(Config{}, zap.NewNop(), nil) })
}

func TestAppServer_HandlerRunsBehindIdentity(t *testing.T) {
	s := newTestServer(t, Config{Environment: "production"})
	s.AddHandlerGet("/whoami", func(r *http.Request, cc *ControllerContext) (any, error) {
		return map[string]string{"user": cc.Identity.User, "tenant": cc.Identity.Tenant}, nil
	})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "tester", body["user"])
	assert.Equal(t, "t1", body["tenant"])
}

func TestAppServer_MethodStatuses(t *testing.T) {
	ok := func(r *http.Request, cc *ControllerContext) (any, error) { return true, nil }

	s := newTestServer(t, Config{Environment: "production"})
	s.AddHandlerGet("/r", ok)
	s.AddHandlerPost("/r", ok)
	s.AddHandlerPut("/r", ok)
	s.AddHandlerDelete("/r", ok)

	cases := map[string]int{
		http.MethodGet:    http.StatusOK,
		http.MethodPost:   http.StatusCreated,
		http.MethodPut:    http.StatusOK,
		http.MethodDelete: http.StatusOK,
	}
	for method, want := range cases {
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, httptest.NewRequest(method, "/r", nil))
		assert.Equal(t, want, rec.Code, method)
	}
}

func TestAppServer_ErrorEnvelopeFromRoute(t *testing.T) {
	s := newTestServer(t, Config{Environment: "production"})
	s.AddHandlerGet("/things/{id}", func(r *http.Request, cc *ControllerContext) (any, error) {
		return nil, NewRecordNotFound(chi.URLParam(r, "id"))
	})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/nope", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "RecordNotFound", body["exceptionName"])
	assert.Contains(t, body["internalMessage"], "nope")
}

func TestAppServer_CORSOnlyInDevelopment(t *testing.T) {
	dev := newTestServer(t, Config{Environment: "development"})
	dev.AddHandlerGet("/r", func(r *http.Request, cc *ControllerContext) (any, error) { return true, nil })

	rec := httptest.NewRecorder()
	dev.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/r", nil))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	prod := newTestServer(t, Config{Environment: "production"})
	prod.AddHandlerGet("/r", func(r *http.Request, cc *ControllerContext) (any, error) { return true, nil })

	rec = httptest.NewRecorder()
	prod.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/r", nil))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAppServer_RecoversFromPanic(t *testing.T) {
	s := newTestServer(t, Config{Environment: "production"})
	s.AddHandlerGet("/boom", func(r *http.Request, cc *ControllerContext) (any, error) {
		panic("controller bug")
	})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
