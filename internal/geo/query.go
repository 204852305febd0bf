package geo

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/burrowhq/presence/pkg/directory"
)

// maxResults caps one containment query. Directory tenants are small
// (workshop scale); a page is deliberately not implemented.
const maxResults = 1000

// Query runs spatial containment searches for one tenant. The spatial index
// is built over the same status hashes the directory store writes, with the
// location field indexed as a spherical geo shape. Records without a
// location are simply absent from the index, so they are excluded from
// results rather than erroring.
type Query struct {
	rdb    *redis.Client
	schema directory.Schema
}

// NewQuery creates the spatial query binding for a tenant.
// The client is shared with the caller and not closed by the query.
func NewQuery(rdb *redis.Client, schema directory.Schema) *Query {
	return &Query{rdb: rdb, schema: schema}
}

// Within returns every status record whose location lies inside the
// boundary polygon. A tenant that never populated its spatial index yields
// zero results, not a failure.
func (q *Query) Within(ctx context.Context, boundary *Boundary) ([]*directory.StatusRecord, error) {
	query := "@location:[WITHIN $shape]"
	options := &redis.FTSearchOptions{
		Limit: maxResults,
		Params: map[string]interface{}{
			"shape": boundary.WKT(),
		},
		// WITHIN / CONTAINS geo-shape predicates require dialect 3.
		DialectVersion: 3,
	}

	result, err := q.rdb.FTSearchWithArgs(ctx, q.schema.LocationIndexName(), query, options).Result()
	if err != nil {
		if isMissingIndex(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("containment query failed: %w", err)
	}

	records := make([]*directory.StatusRecord, 0, len(result.Docs))
	for _, doc := range result.Docs {
		record, err := directory.HashToRecord(doc.Fields)
		if err != nil {
			return nil, fmt.Errorf("failed to decode record %s: %w", doc.ID, err)
		}
		records = append(records, record)
	}
	return records, nil
}

// EnsureIndex creates the tenant's spatial index over its status keys if it
// does not exist.
func (q *Query) EnsureIndex(ctx context.Context) error {
	options := &redis.FTCreateOptions{
		OnHash: true,
		Prefix: []interface{}{q.schema.StatusKeyPrefix()},
	}
	schema := []*redis.FieldSchema{
		{FieldName: "username", FieldType: redis.SearchFieldTypeText},
		{FieldName: "status", FieldType: redis.SearchFieldTypeTag},
		{FieldName: "message", FieldType: redis.SearchFieldTypeText},
		{FieldName: "icon", FieldType: redis.SearchFieldTypeTag},
		{
			FieldName:         "location",
			FieldType:         redis.SearchFieldTypeGeoShape,
			GeoShapeFieldType: "SPHERICAL",
		},
	}

	if err := q.rdb.FTCreate(ctx, q.schema.LocationIndexName(), options, schema...).Err(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "index already exists") {
			return nil
		}
		return fmt.Errorf("failed to create spatial index: %w", err)
	}
	return nil
}

// isMissingIndex reports whether err is RediSearch's complaint about a
// nonexistent index. The wording differs across server versions.
func isMissingIndex(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such index") || strings.Contains(msg, "unknown index")
}
