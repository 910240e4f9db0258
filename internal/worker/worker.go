package worker

import (
	"context"
	"strings"
	"sync"
	"time"

	"storefront-service/internal/broker"
	"storefront-service/internal/catalog"
	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// CatalogWorker keeps the in-memory catalog index aligned with the database
// by consuming change events and patching only the touched product.
type CatalogWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	index        *catalog.Index
	logger       *zap.Logger
}

// NewCatalogWorker creates a new catalog worker
func NewCatalogWorker(consumer *broker.Consumer, store *store.Store, index *catalog.Index) *CatalogWorker {
	w := &CatalogWorker{
		consumer: consumer,
		store:    store,
		index:    index,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnEntityChanged(w.handleEntityChanged)
	w.eventHandler = eventHandler
	return w
}

// Warm fills the index from the store before consuming starts.
func (w *CatalogWorker) Warm(ctx context.Context) error {
	products, err := w.store.GetActiveProducts(ctx)
	if err != nil {
		return err
	}
	w.index.Fill(products)
	w.logger.Info("Catalog index warmed", zap.Int("products", len(products)))
	return nil
}

// Start starts the worker
func (w *CatalogWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting catalog worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CatalogWorker) Stop() error {
	w.logger.Info("Stopping catalog worker")
	return w.consumer.Close()
}

func (w *CatalogWorker) handleEntityChanged(ctx context.Context, event *models.EntityChangedEvent) error {
	// Variant edits never get their own events; writers publish a change for
	// the parent product, so only product ids reach the index.
	if event.Entity != models.EntityProducts {
		return nil
	}

	util.CatalogIndexEventsTotal.WithLabelValues(event.Op).Inc()

	if event.Op == models.ChangeOpDelete {
		w.index.Delete(event.EntityID)
		return nil
	}

	product, err := w.store.GetProductByID(ctx, event.EntityID)
	if err != nil {
		// A product deleted between event and read is treated as a delete.
		if strings.Contains(err.Error(), "not found") {
			w.index.Delete(event.EntityID)
			return nil
		}
		w.logger.Error("Failed to refresh indexed product",
			zap.String("product_id", event.EntityID), zap.Error(err))
		return err
	}

	w.index.Upsert(*product)
	return nil
}

// PaymentWatcher consumes payment-completed broadcasts so live order views
// can show a confirmation without polling the store. Entries expire after the
// retention window and the map is capped, so a long-running watcher holds a
// bounded set of recent completions.
type PaymentWatcher struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
	retention    time.Duration
	capacity     int

	mu     sync.RWMutex
	recent map[string]watchedPayment
}

type watchedPayment struct {
	status string
	seen   time.Time
}

// NewPaymentWatcher creates a new payment watcher
func NewPaymentWatcher(consumer *broker.Consumer) *PaymentWatcher {
	w := &PaymentWatcher{
		consumer:  consumer,
		logger:    util.GetLogger(),
		retention: time.Hour,
		capacity:  1024,
		recent:    make(map[string]watchedPayment),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnPaymentCompleted(w.handlePaymentCompleted)
	w.eventHandler = eventHandler
	return w
}

// Start starts the watcher
func (w *PaymentWatcher) Start(ctx context.Context) error {
	w.logger.Info("Starting payment watcher")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the watcher
func (w *PaymentWatcher) Stop() error {
	w.logger.Info("Stopping payment watcher")
	return w.consumer.Close()
}

func (w *PaymentWatcher) handlePaymentCompleted(_ context.Context, event *models.PaymentCompletedEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	for id, p := range w.recent {
		if now.Sub(p.seen) > w.retention {
			delete(w.recent, id)
		}
	}
	if len(w.recent) >= w.capacity {
		// A burst inside the retention window evicts the stalest entry.
		var oldestID string
		var oldest time.Time
		for id, p := range w.recent {
			if oldestID == "" || p.seen.Before(oldest) {
				oldestID, oldest = id, p.seen
			}
		}
		delete(w.recent, oldestID)
	}

	w.recent[event.OrderID] = watchedPayment{status: event.Status, seen: now}
	w.logger.Info("Payment completion observed",
		zap.String("order_id", event.OrderID),
		zap.String("status", event.Status))
	return nil
}

// Status returns the last observed completion status for an order. Entries
// past the retention window read as absent.
func (w *PaymentWatcher) Status(orderID string) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.recent[orderID]
	if !ok || time.Since(p.seen) > w.retention {
		return "", false
	}
	return p.status, true
}
