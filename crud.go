package turborest

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

// DefaultRowLimit caps query-by-example result sets when the caller does not
// pass an explicit limit.
const DefaultRowLimit = 100

// PersistenceConfig wires one Persistence instance to its collection.
type PersistenceConfig struct {
	Connection ConnectionConfig
	Collection string
	Strategy   TenancyStrategy
	// DatabaseName is the shared database for the TenantInDB strategy. It is
	// ignored (and may be empty) under DBPerTenant.
	DatabaseName string
	// HardDelete switches Delete from marking rows deleted to physically
	// removing them. The default (zero value) keeps deleted rows queryable
	// by primary key.
	HardDelete bool
	// RowLimit overrides DefaultRowLimit when > 0.
	RowLimit int64
	// Indexes are provisioned on first insert (or via EnsureIndexes) in
	// addition to the unique (id, tenantId) index.
	Indexes []IndexDef
}

// Persistence implements all data-access operations for one logical
// collection. Every operation is scoped to exactly one tenant per call and
// opens its own connection, released on every exit path.
type Persistence struct {
	conn       ConnectionConfig
	collection string
	resolver   *TenancyResolver
	hardDelete bool
	rowLimit   int64
	indexDefs  []IndexDef
	logger     *zap.Logger

	// indexesEnsured makes the lazy index provisioning a one-time step per
	// instance. A lost CAS race means a second, idempotent ensure run.
	indexesEnsured atomic.Bool
}

// NewPersistence validates the configuration and binds the engine to its
// collection. The logger is a mandatory collaborator.
func NewPersistence(cfg PersistenceConfig, logger *zap.Logger) (*Persistence, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("turborest: collection name is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("turborest: logger is required")
	}

	resolver, err := NewTenancyResolver(cfg.Strategy, cfg.DatabaseName)
	if err != nil {
		return nil, err
	}

	rowLimit := cfg.RowLimit
	if rowLimit <= 0 {
		rowLimit = DefaultRowLimit
	}

	return &Persistence{
		conn:       cfg.Connection,
		collection: cfg.Collection,
		resolver:   resolver,
		hardDelete: cfg.HardDelete,
		rowLimit:   rowLimit,
		indexDefs:  append(defaultIndexDefs(), cfg.Indexes...),
		logger:     logger.With(zap.String("collection", cfg.Collection)),
	}, nil
}

// Collection returns the collection name this engine is bound to.
func (p *Persistence) Collection() string {
	return p.collection
}

// Query runs a query-by-example against the collection. The predicate is
// augmented server-side with deleted=false and the tenant id, overwriting any
// caller-supplied values for those keys. Limit falls back to the configured
// row cap, skip to 0. An empty result is not an error.
func (p *Persistence) Query(ctx context.Context, predicate bson.M, sort bson.D, tenantID string, skip, limit int64) ([]PayloadRecord, error) {
	p.logger.Debug("query", zap.String("tenantId", tenantID))

	if tenantID == "" {
		return nil, NewMissingTenantID()
	}

	q := bson.M{}
	for k, v := range predicate {
		q[k] = v
	}
	q["deleted"] = false
	q["tenantId"] = tenantID

	if limit <= 0 {
		limit = p.rowLimit
	}
	if skip < 0 {
		skip = 0
	}

	client, err := p.conn.connect(p.resolver.Resolve(tenantID))
	if err != nil {
		return nil, err
	}
	defer disconnect(ctx, client)

	findOpts := options.Find().SetLimit(limit).SetSkip(skip)
	if sort != nil {
		findOpts.SetSort(sort)
	}

	cursor, err := p.coll(client, tenantID).Find(ctx, q, findOpts)
	if err != nil {
		p.logger.Error("query failed", zap.String("tenantId", tenantID), zap.Error(err))
		return nil, fmt.Errorf("turborest: query failed: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	results := []PayloadRecord{}
	if err := cursor.All(ctx, &results); err != nil {
		p.logger.Error("query decode failed", zap.String("tenantId", tenantID), zap.Error(err))
		return nil, fmt.Errorf("turborest: cursor decode failed: %w", err)
	}

	return results, nil
}

// Get looks a record up by (id, tenantId). Exactly one match is required:
// zero matches is RecordNotFound, more than one is TooManyRows. Soft-deleted
// records are still returned so a client can see who deleted them and when.
func (p *Persistence) Get(ctx context.Context, id string, tenantID string) (PayloadRecord, error) {
	p.logger.Debug("get", zap.String("id", id), zap.String("tenantId", tenantID))

	if tenantID == "" {
		return PayloadRecord{}, NewMissingTenantID()
	}

	client, err := p.conn.connect(p.resolver.Resolve(tenantID))
	if err != nil {
		return PayloadRecord{}, err
	}
	defer disconnect(ctx, client)

	rows, err := p.findByID(ctx, client, id, tenantID)
	if err != nil {
		p.logger.Error("get failed", zap.String("id", id), zap.String("tenantId", tenantID), zap.Error(err))
		return PayloadRecord{}, err
	}

	switch len(rows) {
	case 0:
		return PayloadRecord{}, NewRecordNotFound(id)
	case 1:
		return rows[0], nil
	default:
		return PayloadRecord{}, NewTooManyRows(id)
	}
}

// Insert persists a new record. The id is assigned when absent, the tenant id
// and a fresh version-1 audit record are forced. The first insert on an
// instance lazily provisions the declared indexes.
func (p *Persistence) Insert(ctx context.Context, rec PayloadRecord, tenantID string, changedBy string) (PayloadRecord, error) {
	p.logger.Debug("insert", zap.String("id", rec.ID), zap.String("tenantId", tenantID))

	if tenantID == "" {
		return PayloadRecord{}, NewMissingTenantID()
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.TenantID = tenantID
	rec.Deleted = false
	rec.AuditRecord = nextAuditRecord(0, changedBy)

	client, err := p.conn.connect(p.resolver.Resolve(tenantID))
	if err != nil {
		return PayloadRecord{}, err
	}
	defer disconnect(ctx, client)

	coll := p.coll(client, tenantID)

	if p.indexesEnsured.CompareAndSwap(false, true) {
		p.logger.Info("creating indexes", zap.String("tenantId", tenantID))
		ensureIndexes(ctx, coll, p.indexDefs, p.logger)
	}

	if _, err := coll.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return PayloadRecord{}, p.existsAlready(ctx, client, rec, tenantID)
		}
		p.logger.Error("insert failed", zap.String("id", rec.ID), zap.String("tenantId", tenantID), zap.Error(err))
		return PayloadRecord{}, fmt.Errorf("turborest: insert failed: %w", err)
	}

	return rec, nil
}

// Update performs a conditional replace: the write predicate carries the id,
// the tenant id and the caller-supplied row version. Zero matched rows means
// the caller held a stale version.
func (p *Persistence) Update(ctx context.Context, rec PayloadRecord, tenantID string, changedBy string) (PayloadRecord, error) {
	p.logger.Debug("update", zap.String("id", rec.ID), zap.String("tenantId", tenantID))

	if tenantID == "" {
		return PayloadRecord{}, NewMissingTenantID()
	}
	version, err := rowVersionNumber(&rec)
	if err != nil {
		return PayloadRecord{}, err
	}

	rec.TenantID = tenantID
	rec.Deleted = false
	rec.AuditRecord = nextAuditRecord(version, changedBy)

	client, err := p.conn.connect(p.resolver.Resolve(tenantID))
	if err != nil {
		return PayloadRecord{}, err
	}
	defer disconnect(ctx, client)

	predicate := bson.M{"id": rec.ID, "tenantId": tenantID, "auditRecord.rowVersion": version}
	result, err := p.coll(client, tenantID).ReplaceOne(ctx, predicate, rec)
	if err != nil {
		p.logger.Error("update failed", zap.String("id", rec.ID), zap.String("tenantId", tenantID), zap.Error(err))
		return PayloadRecord{}, fmt.Errorf("turborest: update failed: %w", err)
	}
	if result.MatchedCount == 0 {
		return PayloadRecord{}, NewRecordChangedByAnotherUser(rec.ID)
	}

	return rec, nil
}

// Delete marks a record deleted (or removes it in hard-delete mode) with the
// same conditional-write pattern as Update. noLock bypasses the version check
// for administrative cleanup.
func (p *Persistence) Delete(ctx context.Context, id string, rowVersion int, changedBy string, tenantID string, noLock bool) error {
	p.logger.Debug("delete", zap.String("id", id), zap.String("tenantId", tenantID), zap.Bool("noLock", noLock))

	if tenantID == "" {
		return NewMissingTenantID()
	}
	if !noLock && rowVersion == 0 {
		return NewMissingAuditData()
	}

	predicate := bson.M{"id": id, "tenantId": tenantID}
	if !noLock {
		predicate["auditRecord.rowVersion"] = rowVersion
	}

	client, err := p.conn.connect(p.resolver.Resolve(tenantID))
	if err != nil {
		return err
	}
	defer disconnect(ctx, client)

	coll := p.coll(client, tenantID)

	var matched int64
	if p.hardDelete {
		result, err := coll.DeleteOne(ctx, predicate)
		if err != nil {
			p.logger.Error("delete failed", zap.String("id", id), zap.String("tenantId", tenantID), zap.Error(err))
			return fmt.Errorf("turborest: delete failed: %w", err)
		}
		matched = result.DeletedCount
	} else {
		update := bson.M{"$set": bson.M{
			"deleted":     true,
			"auditRecord": nextAuditRecord(rowVersion, changedBy),
		}}
		result, err := coll.UpdateOne(ctx, predicate, update)
		if err != nil {
			p.logger.Error("delete failed", zap.String("id", id), zap.String("tenantId", tenantID), zap.Error(err))
			return fmt.Errorf("turborest: delete failed: %w", err)
		}
		matched = result.MatchedCount
	}

	if matched == 0 {
		if noLock {
			return NewRecordNotFound(id)
		}
		return NewRecordChangedByAnotherUser(id)
	}

	return nil
}

// HealthCheck opens and immediately releases a connection to the tenant's
// database. Connection failures propagate as the underlying store error.
func (p *Persistence) HealthCheck(ctx context.Context, tenantID string) error {
	p.logger.Debug("healthCheck", zap.String("tenantId", tenantID))

	if tenantID == "" {
		return NewMissingTenantID()
	}

	client, err := p.conn.connect(p.resolver.Resolve(tenantID))
	if err != nil {
		return err
	}
	defer disconnect(ctx, client)

	return client.Ping(ctx, nil)
}

// EnsureIndexes provisions the declared indexes for one tenant's database up
// front, as an alternative to the lazy first-insert path. Safe to call more
// than once.
func (p *Persistence) EnsureIndexes(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return NewMissingTenantID()
	}

	client, err := p.conn.connect(p.resolver.Resolve(tenantID))
	if err != nil {
		return err
	}
	defer disconnect(ctx, client)

	ensureIndexes(ctx, p.coll(client, tenantID), p.indexDefs, p.logger)
	p.indexesEnsured.Store(true)
	return nil
}

// --- helpers ---

func (p *Persistence) coll(client *mongo.Client, tenantID string) *mongo.Collection {
	return client.Database(p.resolver.Resolve(tenantID)).Collection(p.collection)
}

// findByID fetches every row for (id, tenantId) so the callers can detect
// uniqueness violations. Deleted rows are included on purpose.
func (p *Persistence) findByID(ctx context.Context, client *mongo.Client, id string, tenantID string) ([]PayloadRecord, error) {
	cursor, err := p.coll(client, tenantID).Find(ctx, bson.M{"id": id, "tenantId": tenantID})
	if err != nil {
		return nil, fmt.Errorf("turborest: find failed: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var rows []PayloadRecord
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("turborest: cursor decode failed: %w", err)
	}
	return rows, nil
}

// existsAlready builds the duplicate-key error for Insert. The conflicting
// row is re-read so the response carries the prior change metadata; when the
// collision happened on a caller-declared business key the attempted row's
// audit data is the best available fallback.
func (p *Persistence) existsAlready(ctx context.Context, client *mongo.Client, rec PayloadRecord, tenantID string) *RestError {
	if rows, err := p.findByID(ctx, client, rec.ID, tenantID); err == nil && len(rows) > 0 {
		prior := rows[0].AuditRecord
		return NewRecordExistsAlready(prior.ChangedAt, prior.ChangedBy)
	}
	return NewRecordExistsAlready(rec.AuditRecord.ChangedAt, rec.AuditRecord.ChangedBy)
}
