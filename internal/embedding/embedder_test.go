package embedding

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTable = `# test word vectors
coffee 1 0 0 0
espresso 0.9 0.1 0 0
meeting 0 1 0 0
lunch 0 0 1 0
desk 0 0 0 1
`

func writeTable(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vectors.txt")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("loads table and reports dimensionality", func(t *testing.T) {
		emb, err := Load(writeTable(t, testTable))
		require.NoError(t, err)
		assert.Equal(t, 4, emb.Dim())
	})

	t.Run("rejects missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.txt"))
		assert.Error(t, err)
	})

	t.Run("rejects empty table", func(t *testing.T) {
		_, err := Load(writeTable(t, "# only comments\n\n"))
		assert.Error(t, err)
	})

	t.Run("rejects mixed dimensionality", func(t *testing.T) {
		_, err := Load(writeTable(t, "a 1 2 3\nb 1 2\n"))
		assert.Error(t, err)
	})

	t.Run("rejects non-numeric coordinates", func(t *testing.T) {
		_, err := Load(writeTable(t, "a one two\n"))
		assert.Error(t, err)
	})
}

func TestEmbed(t *testing.T) {
	emb, err := Load(writeTable(t, testTable))
	require.NoError(t, err)

	t.Run("output is unit length", func(t *testing.T) {
		vec, err := emb.Embed("coffee meeting")
		require.NoError(t, err)
		require.Len(t, vec, emb.Dim())

		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
	})

	t.Run("tokenization is case and punctuation insensitive", func(t *testing.T) {
		a, err := emb.Embed("Coffee!")
		require.NoError(t, err)
		b, err := emb.Embed("coffee")
		require.NoError(t, err)
		assert.Equal(t, b, a)
	})

	t.Run("unknown tokens are skipped", func(t *testing.T) {
		a, err := emb.Embed("grabbing some coffee")
		require.NoError(t, err)
		b, err := emb.Embed("coffee")
		require.NoError(t, err)
		assert.Equal(t, b, a)
	})

	t.Run("errors when nothing is known", func(t *testing.T) {
		_, err := emb.Embed("zzzqqq xxyy")
		assert.Error(t, err)
	})

	t.Run("similar phrases land closer than unrelated ones", func(t *testing.T) {
		coffee, err := emb.Embed("coffee")
		require.NoError(t, err)
		espresso, err := emb.Embed("espresso")
		require.NoError(t, err)
		meeting, err := emb.Embed("meeting")
		require.NoError(t, err)

		assert.Greater(t, dot(coffee, espresso), dot(coffee, meeting))
	})
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// The shared model loads at most once per process: every Default call
// returns the same instance.
func TestDefaultSingleton(t *testing.T) {
	path := writeTable(t, testTable)

	first, err := Default(path)
	require.NoError(t, err)
	second, err := Default(path)
	require.NoError(t, err)
	assert.Same(t, first, second)
}
