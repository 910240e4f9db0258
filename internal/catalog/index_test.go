package catalog

import (
	"testing"
	"time"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id string, createdAt time.Time, active bool) models.Product {
	return models.Product{ID: id, Name: "product " + id, IsActive: active, CreatedAt: createdAt}
}

func TestFillAndList(t *testing.T) {
	idx := NewIndex()
	assert.False(t, idx.Warm())

	now := time.Now()
	idx.Fill([]models.Product{
		product("old", now.Add(-time.Hour), true),
		product("new", now, true),
		product("hidden", now, false),
	})

	assert.True(t, idx.Warm())
	assert.Equal(t, 2, idx.Len())

	list := idx.List()
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)
}

func TestUpsertPatchesSingleEntry(t *testing.T) {
	idx := NewIndex()
	idx.Fill([]models.Product{product("p1", time.Now(), true)})

	updated := product("p1", time.Now(), true)
	updated.Stock = 7
	idx.Upsert(updated)

	list := idx.List()
	require.Len(t, list, 1)
	assert.Equal(t, 7, list[0].Stock)
}

func TestUpsertDropsDeactivatedProduct(t *testing.T) {
	idx := NewIndex()
	idx.Fill([]models.Product{product("p1", time.Now(), true)})

	idx.Upsert(product("p1", time.Now(), false))
	assert.Equal(t, 0, idx.Len())
}

func TestDelete(t *testing.T) {
	idx := NewIndex()
	idx.Fill([]models.Product{product("p1", time.Now(), true)})

	idx.Delete("p1")
	assert.Equal(t, 0, idx.Len())

	// Deleting an unknown id is a no-op.
	idx.Delete("missing")
}
