package worker

import (
	"context"
	"testing"
	"time"

	"storefront-service/internal/catalog"
	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

func newTestCatalogWorker(idx *catalog.Index) *CatalogWorker {
	// No store: any event that slips past the entity filter would panic.
	return &CatalogWorker{index: idx, logger: zap.NewNop()}
}

func changeEvent(entity, op, id string) *models.EntityChangedEvent {
	return &models.EntityChangedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeEntityChanged},
		Entity:    entity,
		Op:        op,
		EntityID:  id,
	}
}

func TestCatalogWorkerIgnoresNonProductEntities(t *testing.T) {
	idx := catalog.NewIndex()
	idx.Fill([]models.Product{{ID: "p1", Name: "T-shirt", IsActive: true}})
	w := newTestCatalogWorker(idx)

	for _, entity := range []string{models.EntityVariants, models.EntityOrders, models.EntitySettings} {
		// A variant id routed into a product read would never resolve; those
		// events must not touch the index at all.
		err := w.handleEntityChanged(context.Background(), changeEvent(entity, models.ChangeOpUpsert, "p1"))
		require.NoError(t, err)
		assert.Equal(t, 1, idx.Len())
	}
}

func TestCatalogWorkerDeleteRemovesProduct(t *testing.T) {
	idx := catalog.NewIndex()
	idx.Fill([]models.Product{{ID: "p1", Name: "T-shirt", IsActive: true}})
	w := newTestCatalogWorker(idx)

	err := w.handleEntityChanged(context.Background(),
		changeEvent(models.EntityProducts, models.ChangeOpDelete, "p1"))
	require.NoError(t, err)
	assert.Zero(t, idx.Len())
}

func newTestWatcher() *PaymentWatcher {
	return &PaymentWatcher{
		logger:    zap.NewNop(),
		retention: time.Hour,
		capacity:  1024,
		recent:    make(map[string]watchedPayment),
	}
}

func completedEvent(orderID string) *models.PaymentCompletedEvent {
	return &models.PaymentCompletedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypePaymentCompleted},
		OrderID:   orderID,
		Status:    "completed",
	}
}

func TestPaymentWatcherStatus(t *testing.T) {
	w := newTestWatcher()

	require.NoError(t, w.handlePaymentCompleted(context.Background(), completedEvent("ord-1")))

	status, ok := w.Status("ord-1")
	assert.True(t, ok)
	assert.Equal(t, "completed", status)

	_, ok = w.Status("ord-2")
	assert.False(t, ok)
}

func TestPaymentWatcherExpiresOldEntries(t *testing.T) {
	w := newTestWatcher()
	w.recent["stale"] = watchedPayment{status: "completed", seen: time.Now().Add(-2 * time.Hour)}

	_, ok := w.Status("stale")
	assert.False(t, ok, "entries past retention read as absent")

	// The next completion sweeps expired entries out of the map.
	require.NoError(t, w.handlePaymentCompleted(context.Background(), completedEvent("ord-1")))
	w.mu.RLock()
	_, held := w.recent["stale"]
	w.mu.RUnlock()
	assert.False(t, held)
}

func TestPaymentWatcherEvictsAtCapacity(t *testing.T) {
	w := newTestWatcher()
	w.capacity = 2
	now := time.Now()
	w.recent["old"] = watchedPayment{status: "completed", seen: now.Add(-2 * time.Minute)}
	w.recent["newer"] = watchedPayment{status: "completed", seen: now.Add(-time.Minute)}

	require.NoError(t, w.handlePaymentCompleted(context.Background(), completedEvent("ord-3")))

	assert.Len(t, w.recent, 2)
	_, ok := w.Status("old")
	assert.False(t, ok, "stalest entry gives way")
	_, ok = w.Status("newer")
	assert.True(t, ok)
	_, ok = w.Status("ord-3")
	assert.True(t, ok)
}
