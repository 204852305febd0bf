// Package icon resolves a free-text status message to a best-matching icon
// via nearest-neighbor lookup over a per-tenant vector index. Resolution
// never fails from the caller's perspective: every error path degrades to
// the default icon.
package icon

import (
	"context"
	"log"
	"strings"

	"github.com/burrowhq/presence/internal/embedding"
	"github.com/burrowhq/presence/pkg/directory"
)

// Searcher answers single-nearest-neighbor queries against a tenant's icon
// candidate index.
type Searcher interface {
	// Nearest returns the name of the candidate closest to vector under
	// cosine distance, or found=false when the index holds no candidates.
	Nearest(ctx context.Context, vector []float32) (name string, found bool, err error)
}

// Resolver maps status messages to icon names.
type Resolver struct {
	embedder func() (embedding.Embedder, error)
	index    Searcher
}

// NewResolver creates a resolver over a candidate index. The embedder is
// obtained lazily per resolution so that a model-load failure degrades the
// lookup instead of failing resolver construction.
func NewResolver(embedder func() (embedding.Embedder, error), index Searcher) *Resolver {
	return &Resolver{embedder: embedder, index: index}
}

// Resolve returns the icon name for a status message.
//
// An empty or whitespace-only message returns the default icon immediately,
// without touching the embedder. Otherwise the message is embedded and the
// index queried for its single nearest neighbor (k=1, no re-ranking). Any
// failure along the way (model load, embedding, index absent, query error,
// empty index) is logged and degrades to the default icon; this method
// never propagates an error to the write path.
func (r *Resolver) Resolve(ctx context.Context, message string) string {
	if strings.TrimSpace(message) == "" {
		return directory.DefaultIcon
	}

	emb, err := r.embedder()
	if err != nil {
		log.Printf("[IconResolver] Embedder unavailable, using default icon: %v", err)
		return directory.DefaultIcon
	}

	vector, err := emb.Embed(message)
	if err != nil {
		log.Printf("[IconResolver] Failed to embed %q, using default icon: %v", message, err)
		return directory.DefaultIcon
	}

	name, found, err := r.index.Nearest(ctx, vector)
	if err != nil {
		log.Printf("[IconResolver] Candidate query failed, using default icon: %v", err)
		return directory.DefaultIcon
	}
	if !found {
		return directory.DefaultIcon
	}
	return name
}
