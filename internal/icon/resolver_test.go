package icon

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/burrowhq/presence/internal/embedding"
	"github.com/burrowhq/presence/pkg/directory"
)

// spyEmbedder counts Embed calls so tests can assert the empty-message
// short-circuit never reaches the model.
type spyEmbedder struct {
	calls int
	fail  bool
}

func (s *spyEmbedder) Embed(text string) ([]float32, error) {
	s.calls++
	if s.fail {
		return nil, fmt.Errorf("embed failed")
	}
	return []float32{1, 0, 0}, nil
}

func (s *spyEmbedder) Dim() int { return 3 }

type fakeSearcher struct {
	name  string
	found bool
	err   error
	calls int
}

func (f *fakeSearcher) Nearest(ctx context.Context, vector []float32) (string, bool, error) {
	f.calls++
	return f.name, f.found, f.err
}

func embedderProvider(e embedding.Embedder, err error) func() (embedding.Embedder, error) {
	return func() (embedding.Embedder, error) { return e, err }
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns nearest candidate name", func(t *testing.T) {
		index := &fakeSearcher{name: "coffee", found: true}
		r := NewResolver(embedderProvider(&spyEmbedder{}, nil), index)
		assert.Equal(t, "coffee", r.Resolve(ctx, "grabbing coffee"))
	})

	t.Run("empty message short-circuits without embedding", func(t *testing.T) {
		spy := &spyEmbedder{}
		index := &fakeSearcher{name: "coffee", found: true}
		r := NewResolver(embedderProvider(spy, nil), index)

		for _, message := range []string{"", "   ", "\t\n"} {
			assert.Equal(t, directory.DefaultIcon, r.Resolve(ctx, message))
		}
		assert.Zero(t, spy.calls, "empty messages must never invoke the embedder")
		assert.Zero(t, index.calls)
	})

	t.Run("embedder load failure degrades to default", func(t *testing.T) {
		r := NewResolver(embedderProvider(nil, fmt.Errorf("model load failed")), &fakeSearcher{})
		assert.Equal(t, directory.DefaultIcon, r.Resolve(ctx, "anything"))
	})

	t.Run("embedding failure degrades to default", func(t *testing.T) {
		r := NewResolver(embedderProvider(&spyEmbedder{fail: true}, nil), &fakeSearcher{})
		assert.Equal(t, directory.DefaultIcon, r.Resolve(ctx, "anything"))
	})

	t.Run("index error degrades to default", func(t *testing.T) {
		index := &fakeSearcher{err: fmt.Errorf("connection refused")}
		r := NewResolver(embedderProvider(&spyEmbedder{}, nil), index)
		assert.Equal(t, directory.DefaultIcon, r.Resolve(ctx, "anything"))
	})

	t.Run("empty index degrades to default, not error", func(t *testing.T) {
		index := &fakeSearcher{found: false}
		r := NewResolver(embedderProvider(&spyEmbedder{}, nil), index)
		assert.Equal(t, directory.DefaultIcon, r.Resolve(ctx, "anything"))
	})
}

func TestVectorBlob(t *testing.T) {
	t.Run("encodes little-endian float32", func(t *testing.T) {
		blob := VectorBlob([]float32{1, -2})
		// 1.0 = 0x3f800000, -2.0 = 0xc0000000, little-endian per element.
		assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f, 0x00, 0x00, 0x00, 0xc0}, blob)
	})

	t.Run("length is 4 bytes per dimension", func(t *testing.T) {
		assert.Len(t, VectorBlob(make([]float32, 5)), 20)
	})
}
