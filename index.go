package turborest

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

// IndexDef represents a (possibly multi-field) index on the collection.
type IndexDef struct {
	Fields []string
	Unique bool
}

// NewIndex creates a non-unique index definition on the given fields.
func NewIndex(fields ...string) IndexDef {
	return IndexDef{Fields: fields, Unique: false}
}

// NewUniqueIndex creates a unique index definition on the given fields.
func NewUniqueIndex(fields ...string) IndexDef {
	return IndexDef{Fields: fields, Unique: true}
}

func (d IndexDef) name() string {
	parts := make([]string, 0, len(d.Fields)*2)
	for _, f := range d.Fields {
		parts = append(parts, f, "1")
	}
	return strings.Join(parts, "_")
}

func (d IndexDef) model() mongo.IndexModel {
	keys := bson.D{}
	for _, f := range d.Fields {
		keys = append(keys, bson.E{Key: f, Value: 1})
	}
	m := mongo.IndexModel{Keys: keys}
	if d.Unique {
		m.Options = options.Index().SetUnique(true)
	}
	return m
}

// defaultIndexDefs backs the (id, tenantId) uniqueness invariant every
// collection relies on. Engine-specific definitions are appended to it.
func defaultIndexDefs() []IndexDef {
	return []IndexDef{NewUniqueIndex("id", "tenantId")}
}

// ensureIndexes creates the missing indexes on coll. It is idempotent:
// existing indexes are listed first and skipped. A creation failure is logged
// and swallowed so a benign duplicate-index race between two first inserts
// never fails the triggering write.
func ensureIndexes(ctx context.Context, coll *mongo.Collection, defs []IndexDef, logger *zap.Logger) {
	existing, err := listExistingIndexes(ctx, coll)
	if err != nil {
		logger.Warn("failed to list indexes", zap.String("collection", coll.Name()), zap.Error(err))
		existing = map[string]bool{}
	}

	for _, def := range defs {
		if existing[def.name()] {
			continue
		}
		if _, err := coll.Indexes().CreateOne(ctx, def.model()); err != nil {
			logger.Warn("failed to create index",
				zap.String("collection", coll.Name()),
				zap.String("index", def.name()),
				zap.Error(err))
		}
	}
}

// listExistingIndexes returns the set of index names present on the collection.
func listExistingIndexes(ctx context.Context, coll *mongo.Collection) (map[string]bool, error) {
	result := make(map[string]bool)

	cursor, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var idx bson.M
		if err := cursor.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			result[name] = true
		}
	}

	return result, nil
}
