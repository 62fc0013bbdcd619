package turborest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

// Controller exposes the standard operations of one collection as
// dispatcher-compatible controller functions. Applications embed or wrap it
// and register its methods on routes; the persistence engine and logger are
// injected explicitly.
type Controller struct {
	persistence *Persistence
	logger      *zap.Logger
	// objectName labels the payload in NotNullViolated responses.
	objectName string
	// requiredFields are checked on insert and update before any I/O.
	requiredFields []string
}

// NewController binds a controller to its persistence engine.
func NewController(p *Persistence, logger *zap.Logger, objectName string, requiredFields ...string) *Controller {
	if p == nil {
		panic("turborest: controller requires a persistence engine")
	}
	if logger == nil {
		panic("turborest: controller requires a logger")
	}
	if objectName == "" {
		objectName = p.Collection()
	}
	return &Controller{
		persistence:    p,
		logger:         logger,
		objectName:     objectName,
		requiredFields: requiredFields,
	}
}

// QueryByExample lists records matching the request's query parameters. Every
// parameter except skip and limit becomes an equality predicate on the
// payload body; deleted and tenant scoping are forced by the engine.
func (c *Controller) QueryByExample(r *http.Request, cc *ControllerContext) (any, error) {
	predicate := bson.M{}
	var skip, limit int64

	for key, values := range r.URL.Query() {
		if len(values) == 0 {
			continue
		}
		switch key {
		case "skip":
			skip, _ = strconv.ParseInt(values[0], 10, 64)
		case "limit":
			limit, _ = strconv.ParseInt(values[0], 10, 64)
		default:
			predicate["data."+key] = values[0]
		}
	}

	return c.persistence.Query(r.Context(), predicate, nil, cc.Identity.Tenant, skip, limit)
}

// GetByID fetches the record whose id is in the route's {id} parameter.
func (c *Controller) GetByID(r *http.Request, cc *ControllerContext) (any, error) {
	return c.persistence.Get(r.Context(), chi.URLParam(r, "id"), cc.Identity.Tenant)
}

// Insert persists the request body as a new record.
func (c *Controller) Insert(r *http.Request, cc *ControllerContext) (any, error) {
	rec, err := c.decodeRecord(r)
	if err != nil {
		return nil, err
	}
	return c.persistence.Insert(r.Context(), rec, cc.Identity.Tenant, cc.Identity.User)
}

// Update replaces the record under the caller's row version.
func (c *Controller) Update(r *http.Request, cc *ControllerContext) (any, error) {
	rec, err := c.decodeRecord(r)
	if err != nil {
		return nil, err
	}
	if id := chi.URLParam(r, "id"); id != "" {
		rec.ID = id
	}
	return c.persistence.Update(r.Context(), rec, cc.Identity.Tenant, cc.Identity.User)
}

// Delete soft-deletes (or removes, in hard-delete mode) the record in the
// route's {id} parameter. The caller's row version travels in the rowVersion
// query parameter; noLock=true bypasses the optimistic check.
func (c *Controller) Delete(r *http.Request, cc *ControllerContext) (any, error) {
	id := chi.URLParam(r, "id")
	rowVersion, _ := strconv.Atoi(r.URL.Query().Get("rowVersion"))
	noLock := r.URL.Query().Get("noLock") == "true"

	if err := c.persistence.Delete(r.Context(), id, rowVersion, cc.Identity.User, cc.Identity.Tenant, noLock); err != nil {
		return nil, err
	}
	return true, nil
}

// HealthCheck probes the tenant's database connection and reports liveness as
// a PayloadRecord-shaped status. Connection failures propagate to the
// dispatcher's ServerError path.
func (c *Controller) HealthCheck(r *http.Request, cc *ControllerContext) (any, error) {
	tenantID := chi.URLParam(r, "tenant")
	if tenantID == "" {
		tenantID = cc.Identity.Tenant
	}
	if tenantID == "" {
		tenantID = "0"
	}

	if err := c.persistence.HealthCheck(r.Context(), tenantID); err != nil {
		return nil, err
	}

	return PayloadRecord{
		TenantID: tenantID,
		Data:     bson.M{"message": "I'm alive"},
	}, nil
}

func (c *Controller) decodeRecord(r *http.Request) (PayloadRecord, error) {
	var rec PayloadRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		return PayloadRecord{}, NewServerError(err)
	}
	if err := RequireFields(rec, c.objectName, c.requiredFields...); err != nil {
		return PayloadRecord{}, err
	}
	return rec, nil
}
