// Package embedding turns free text into fixed-length unit vectors for
// nearest-neighbor icon resolution. The model is consumed as an opaque
// text-to-vector function: a word-vector table loaded from disk once per
// process, with token vectors averaged and L2-normalized so downstream
// similarity is a pure dot product.
package embedding

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Embedder converts text to a fixed-length unit vector.
type Embedder interface {
	// Embed returns the normalized embedding of text. The returned slice
	// always has length Dim(). Returns an error when the text contains no
	// token known to the model.
	Embed(text string) ([]float32, error)

	// Dim returns the model's output dimensionality.
	Dim() int
}

// TableEmbedder is a word-vector table embedder. Sentence embeddings are the
// L2-normalized mean of the known token vectors. Safe for concurrent use
// after Load returns: the table is read-only.
type TableEmbedder struct {
	vectors map[string][]float32
	dim     int
}

// Load reads a word-vector table in the plain-text format
//
//	word v1 v2 ... vD
//
// one entry per line, all entries the same dimensionality. Lines starting
// with '#' and blank lines are skipped. Loading is the one-time model cost;
// use Default for the process-wide shared instance.
func Load(path string) (*TableEmbedder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector table: %w", err)
	}
	defer f.Close()

	e := &TableEmbedder{vectors: make(map[string][]float32)}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("vector table line %d: no coordinates", lineNo)
		}
		word := strings.ToLower(fields[0])
		vec := make([]float32, len(fields)-1)
		for i, field := range fields[1:] {
			v, err := strconv.ParseFloat(field, 32)
			if err != nil {
				return nil, fmt.Errorf("vector table line %d: invalid coordinate %q: %w", lineNo, field, err)
			}
			vec[i] = float32(v)
		}
		if e.dim == 0 {
			e.dim = len(vec)
		} else if len(vec) != e.dim {
			return nil, fmt.Errorf("vector table line %d: dimensionality %d, want %d", lineNo, len(vec), e.dim)
		}
		e.vectors[word] = vec
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vector table: %w", err)
	}
	if len(e.vectors) == 0 {
		return nil, fmt.Errorf("vector table %s contains no entries", path)
	}
	return e, nil
}

// Dim returns the model's output dimensionality.
func (e *TableEmbedder) Dim() int {
	return e.dim
}

// Embed returns the L2-normalized mean of the known token vectors in text.
// Tokenization is lowercase on non-letter boundaries. Returns an error when
// no token is known to the table.
func (e *TableEmbedder) Embed(text string) ([]float32, error) {
	sum := make([]float32, e.dim)
	known := 0
	for _, token := range tokenize(text) {
		vec, ok := e.vectors[token]
		if !ok {
			continue
		}
		for i, v := range vec {
			sum[i] += v
		}
		known++
	}
	if known == 0 {
		return nil, fmt.Errorf("no known tokens in %q", text)
	}

	var norm float64
	for _, v := range sum {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return nil, fmt.Errorf("zero-magnitude embedding for %q", text)
	}
	for i := range sum {
		sum[i] = float32(float64(sum[i]) / norm)
	}
	return sum, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
}

// Process-wide shared model. Loading is guarded by a sync.Once so concurrent
// first-callers block on the same in-flight load instead of racing duplicate
// loads; a load failure is cached and returned to every caller.
var (
	defaultOnce sync.Once
	defaultEmb  *TableEmbedder
	defaultErr  error
)

// Default returns the shared process-wide embedder, loading it from path on
// the first call. Subsequent calls return the same instance and ignore path.
func Default(path string) (*TableEmbedder, error) {
	defaultOnce.Do(func() {
		defaultEmb, defaultErr = Load(path)
	})
	if defaultErr != nil {
		return nil, fmt.Errorf("embedding model unavailable: %w", defaultErr)
	}
	return defaultEmb, nil
}
