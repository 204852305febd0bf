package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Store provides tenant-scoped persistence for status records over a
// namespaced Redis hash store. All keys are derived from the tenant's Schema.
// The store holds no in-process mutable state: every call is stateless
// against Redis, so a Store is safe for concurrent use.
type Store struct {
	rdb    *redis.Client
	schema Schema
}

// NewStore creates a store for one tenant.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - schema: tenant key schema from NewSchema
func NewStore(redisOpts *redis.Options, schema Schema) *Store {
	return &Store{
		rdb:    redis.NewClient(redisOpts),
		schema: schema,
	}
}

// Close closes the Redis connection. Implements io.Closer.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Schema returns the tenant key schema this store is bound to.
func (s *Store) Schema() Schema {
	return s.schema
}

// Redis returns the underlying client for collaborators that issue commands
// the store does not model (search queries, publishes). The returned client
// shares the store's connection pool.
func (s *Store) Redis() *redis.Client {
	return s.rdb
}

// Get retrieves one user's status record.
// Returns (nil, redis.Nil) if the user has never written a status.
// Use IsNotFound() to check for not-found errors.
func (s *Store) Get(ctx context.Context, username string) (*StatusRecord, error) {
	key := s.schema.StatusKey(username)

	hash, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read status record: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys.
	if len(hash) == 0 {
		return nil, redis.Nil
	}

	record, err := HashToRecord(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize status record: %w", err)
	}
	return record, nil
}

// Put writes a status record, creating it on first write. Fields present in
// the record overwrite stored fields; an omitted location is retained from
// the previous write (HSET merges). Use ClearLocation for an explicit clear.
// Validates the record before writing.
func (s *Store) Put(ctx context.Context, record *StatusRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid status record: %w", err)
	}

	key := s.schema.StatusKey(record.Username)
	if err := s.rdb.HSet(ctx, key, RecordToHash(record)).Err(); err != nil {
		return fmt.Errorf("failed to write status record: %w", err)
	}
	return nil
}

// ClearLocation removes the stored location for a user, if any.
// Clearing a user with no location (or no record at all) is a no-op.
func (s *Store) ClearLocation(ctx context.Context, username string) error {
	key := s.schema.StatusKey(username)
	if err := s.rdb.HDel(ctx, key, "location").Err(); err != nil {
		return fmt.Errorf("failed to clear location: %w", err)
	}
	return nil
}

// ListAll enumerates every status record in the tenant's namespace via SCAN.
// Enumeration order is unspecified, and a key may be visited more than once
// if the namespace mutates mid-enumeration (SCAN's cursor guarantees). An
// uninitialized tenant (no keys yet) yields an empty slice, not an error.
func (s *Store) ListAll(ctx context.Context) ([]*StatusRecord, error) {
	var records []*StatusRecord

	iter := s.rdb.Scan(ctx, 0, s.schema.StatusKeyPattern(), 100).Iterator()
	for iter.Next(ctx) {
		hash, err := s.rdb.HGetAll(ctx, iter.Val()).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read status record %s: %w", iter.Val(), err)
		}
		// Key deleted between SCAN and HGETALL: skip.
		if len(hash) == 0 {
			continue
		}
		record, err := HashToRecord(hash)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize status record %s: %w", iter.Val(), err)
		}
		records = append(records, record)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan tenant namespace: %w", err)
	}
	return records, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error
// (redis.Nil). Use this to check if Get returned "no record".
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
