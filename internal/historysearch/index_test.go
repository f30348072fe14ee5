package historysearch_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/index-checker/internal/historysearch"
	"github.com/jonesrussell/index-checker/internal/models"
)

func seed(t *testing.T, idx *historysearch.Index) {
	t.Helper()

	now := time.Now().UTC()
	require.NoError(t, idx.Index(1, "blog.com", []models.CheckedURL{
		{URL: "https://blog.com/seo-guide", Status: models.StatusIndexed, CheckedAt: now},
		{URL: "https://blog.com/pricing", Status: models.StatusNotIndexed, CheckedAt: now},
	}))
	require.NoError(t, idx.Index(2, "shop.net", []models.CheckedURL{
		{URL: "https://shop.net/seo-tools", Status: models.StatusError, CheckedAt: now},
	}))
}

func TestIndex_Search(t *testing.T) {
	idx, err := historysearch.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	seed(t, idx)

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	hits, err := idx.Search("pricing", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].CheckID)
	assert.Equal(t, "blog.com", hits[0].Domain)
	assert.Equal(t, "https://blog.com/pricing", hits[0].URL)
	assert.Equal(t, "Not Indexed", hits[0].Status)

	hits, err = idx.Search("domain:shop.net", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(2), hits[0].CheckID)
}

func TestIndex_Reset(t *testing.T) {
	idx, err := historysearch.Open(filepath.Join(t.TempDir(), "history.bleve"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	seed(t, idx)

	require.NoError(t, idx.Reset())

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Zero(t, count)

	hits, err := idx.Search("pricing", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestOpen_ReopensExistingIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.bleve")

	idx, err := historysearch.Open(path)
	require.NoError(t, err)
	seed(t, idx)
	require.NoError(t, idx.Close())

	reopened, err := historysearch.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	count, err := reopened.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}
