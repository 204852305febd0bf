package icon

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/burrowhq/presence/internal/embedding"
	"github.com/burrowhq/presence/pkg/directory"
)

// RedisIndex is the RediSearch-backed candidate index for one tenant.
// Candidates are hashes at icon:{tenant}:{name} carrying the icon name and
// a FLOAT32 embedding blob; the index is a FLAT cosine vector index over
// that prefix. Candidates are read-only from the resolver's perspective and
// written by LoadCandidates.
type RedisIndex struct {
	rdb    *redis.Client
	schema directory.Schema
}

// NewRedisIndex creates the candidate index binding for a tenant.
// The client is shared with the caller and not closed by the index.
func NewRedisIndex(rdb *redis.Client, schema directory.Schema) *RedisIndex {
	return &RedisIndex{rdb: rdb, schema: schema}
}

// Nearest implements Searcher with a k=1 KNN query.
// A tenant that never populated its icon index reports found=false rather
// than an error.
func (x *RedisIndex) Nearest(ctx context.Context, vector []float32) (string, bool, error) {
	query := "*=>[KNN 1 @embedding $vec AS vector_score]"
	options := &redis.FTSearchOptions{
		Return: []redis.FTSearchReturn{{FieldName: "name"}},
		SortBy: []redis.FTSearchSortBy{{FieldName: "vector_score", Asc: true}},
		Limit:  1,
		Params: map[string]interface{}{
			"vec": VectorBlob(vector),
		},
		DialectVersion: 2,
	}

	result, err := x.rdb.FTSearchWithArgs(ctx, x.schema.IconIndexName(), query, options).Result()
	if err != nil {
		if isMissingIndex(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("candidate KNN query failed: %w", err)
	}
	if len(result.Docs) == 0 {
		return "", false, nil
	}

	name := result.Docs[0].Fields["name"]
	if name == "" {
		return "", false, fmt.Errorf("candidate %s has no name field", result.Docs[0].ID)
	}
	return name, true, nil
}

// EnsureIndex creates the tenant's vector index if it does not exist.
// dim must match the embedding model's output dimensionality.
func (x *RedisIndex) EnsureIndex(ctx context.Context, dim int) error {
	options := &redis.FTCreateOptions{
		OnHash: true,
		Prefix: []interface{}{x.schema.IconCandidatePrefix()},
	}
	schema := []*redis.FieldSchema{
		{FieldName: "name", FieldType: redis.SearchFieldTypeText},
		{
			FieldName: "embedding",
			FieldType: redis.SearchFieldTypeVector,
			VectorArgs: &redis.FTVectorArgs{
				FlatOptions: &redis.FTFlatOptions{
					Type:           "FLOAT32",
					Dim:            dim,
					DistanceMetric: "COSINE",
				},
			},
		},
	}

	if err := x.rdb.FTCreate(ctx, x.schema.IconIndexName(), options, schema...).Err(); err != nil {
		if isIndexExists(err) {
			return nil
		}
		return fmt.Errorf("failed to create icon index: %w", err)
	}
	return nil
}

// Candidate is one loadable icon candidate: the icon name plus the seed
// phrase whose embedding represents it in the index.
type Candidate struct {
	Name   string `yaml:"name"`
	Phrase string `yaml:"phrase"`
}

// LoadCandidates embeds and writes icon candidates into the tenant's index,
// creating the index first. This is the external loading process for icon
// candidates; the resolver itself never writes.
func (x *RedisIndex) LoadCandidates(ctx context.Context, emb embedding.Embedder, candidates []Candidate) error {
	if err := x.EnsureIndex(ctx, emb.Dim()); err != nil {
		return err
	}
	for _, c := range candidates {
		if c.Name == "" {
			return fmt.Errorf("icon candidate with empty name")
		}
		phrase := c.Phrase
		if phrase == "" {
			phrase = c.Name
		}
		vector, err := emb.Embed(phrase)
		if err != nil {
			return fmt.Errorf("failed to embed candidate %q: %w", c.Name, err)
		}
		key := x.schema.IconCandidateKey(c.Name)
		fields := map[string]interface{}{
			"name":      c.Name,
			"embedding": VectorBlob(vector),
		}
		if err := x.rdb.HSet(ctx, key, fields).Err(); err != nil {
			return fmt.Errorf("failed to write candidate %q: %w", c.Name, err)
		}
	}
	return nil
}

// VectorBlob encodes a float32 vector as the little-endian byte blob
// RediSearch expects for FLOAT32 vector fields and query parameters.
func VectorBlob(vector []float32) []byte {
	blob := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[4*i:], math.Float32bits(v))
	}
	return blob
}

// isMissingIndex reports whether err is RediSearch's complaint about a
// nonexistent index. The wording differs across server versions.
func isMissingIndex(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such index") || strings.Contains(msg, "unknown index")
}

func isIndexExists(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "index already exists")
}
