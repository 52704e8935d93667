package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tradeskills/course-radar/backend/internal/catalog"
)

func TestGetValidRange(t *testing.T) {
	for n := 1; n <= catalog.Count(); n++ {
		batch, err := catalog.Get(n)
		require.NoError(t, err)
		require.Equal(t, n, batch.Number)
		require.NotEmpty(t, batch.Name)
		require.NotEmpty(t, batch.Category)
		require.NotEmpty(t, batch.Sources)
		require.NotEmpty(t, batch.Fallback, "batch %d must carry fallback records", n)
		require.NotEmpty(t, batch.Prompt)
	}
}

func TestGetOutOfRange(t *testing.T) {
	for _, n := range []int{0, -1, catalog.Count() + 1, 100} {
		_, err := catalog.Get(n)
		require.ErrorIs(t, err, catalog.ErrOutOfRange)
	}
}

func TestAllOrdered(t *testing.T) {
	all := catalog.All()
	require.Len(t, all, catalog.Count())
	for i, batch := range all {
		require.Equal(t, i+1, batch.Number)
	}
}

func TestProjectManagementBatch(t *testing.T) {
	batch, err := catalog.Get(4)
	require.NoError(t, err)
	require.Equal(t, "Project Management", batch.Name)
	require.Len(t, batch.Fallback, 4)

	var found bool
	for _, rec := range batch.Fallback {
		if rec["title"] == "PRINCE2 Foundation" {
			found = true
		}
	}
	require.True(t, found, "PRINCE2 Foundation expected in project management fallback data")
}

func TestFallbackTitlesPresent(t *testing.T) {
	for _, batch := range catalog.All() {
		for i, rec := range batch.Fallback {
			title, ok := rec["title"].(string)
			require.True(t, ok, "batch %d record %d missing title", batch.Number, i)
			require.NotEmpty(t, title)
		}
	}
}
