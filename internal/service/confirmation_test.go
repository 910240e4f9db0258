package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

type fakeFinalizer struct {
	calls        int
	failuresLeft int
	paid         map[string]bool
	productIDs   []string
}

func (f *fakeFinalizer) MarkOrderPaid(_ context.Context, orderID string) (bool, []string, error) {
	f.calls++
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return false, nil, errors.New("connection reset by peer")
	}
	if f.paid == nil {
		f.paid = make(map[string]bool)
	}
	if f.paid[orderID] {
		return true, nil, nil
	}
	f.paid[orderID] = true
	return false, f.productIDs, nil
}

type fakeMarker struct {
	seen map[string]bool
	err  error
}

func (f *fakeMarker) PaymentSeen(_ context.Context, orderID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.seen[orderID], nil
}

func (f *fakeMarker) MarkPaymentSeen(_ context.Context, orderID string, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[orderID] {
		return false, nil
	}
	f.seen[orderID] = true
	return true, nil
}

type fakePublisher struct {
	completed []string
	changed   []string
}

func (f *fakePublisher) PublishEntityChanged(_ context.Context, entity, _, entityID string) error {
	f.changed = append(f.changed, entity+":"+entityID)
	return nil
}

func (f *fakePublisher) PublishPaymentCompleted(_ context.Context, orderID, _ string) error {
	f.completed = append(f.completed, orderID)
	return nil
}

func newTestConfirmation(finalizer *fakeFinalizer, marker *fakeMarker, publisher *fakePublisher) *ConfirmationService {
	var m seenMarker
	if marker != nil {
		m = marker
	}
	return &ConfirmationService{
		store:          finalizer,
		marker:         m,
		eventPublisher: publisher,
		logger:         zap.NewNop(),
	}
}

func TestConfirmPaymentFirstRun(t *testing.T) {
	finalizer := &fakeFinalizer{productIDs: []string{"p1", "p2"}}
	marker := &fakeMarker{}
	publisher := &fakePublisher{}
	s := newTestConfirmation(finalizer, marker, publisher)

	result, err := s.ConfirmPayment(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.False(t, result.AlreadyProcessed)
	assert.Equal(t, "ord-1", result.OrderID)

	assert.Equal(t, []string{"ord-1"}, publisher.completed)
	assert.Contains(t, publisher.changed, "products:p1")
	assert.Contains(t, publisher.changed, "products:p2")
	assert.True(t, marker.seen["ord-1"])
}

// A store failure must leave no marker behind, so the provider's retry still
// reaches the database instead of being reported as already processed.
func TestConfirmPaymentStoreFailureThenRetry(t *testing.T) {
	finalizer := &fakeFinalizer{failuresLeft: 1, productIDs: []string{"p1"}}
	marker := &fakeMarker{}
	publisher := &fakePublisher{}
	s := newTestConfirmation(finalizer, marker, publisher)

	_, err := s.ConfirmPayment(context.Background(), "ord-1")
	require.Error(t, err)
	assert.False(t, marker.seen["ord-1"], "failed confirmation must not record a marker")
	assert.Empty(t, publisher.completed)

	result, err := s.ConfirmPayment(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.False(t, result.AlreadyProcessed, "retry after a failure is the first real confirmation")
	assert.Equal(t, 2, finalizer.calls)
	assert.Equal(t, []string{"ord-1"}, publisher.completed)
	assert.True(t, marker.seen["ord-1"])
}

func TestConfirmPaymentDuplicateShortCircuits(t *testing.T) {
	finalizer := &fakeFinalizer{productIDs: []string{"p1"}}
	marker := &fakeMarker{}
	publisher := &fakePublisher{}
	s := newTestConfirmation(finalizer, marker, publisher)

	_, err := s.ConfirmPayment(context.Background(), "ord-1")
	require.NoError(t, err)

	result, err := s.ConfirmPayment(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.True(t, result.AlreadyProcessed)
	assert.Equal(t, 1, finalizer.calls, "duplicate must not reach the store")
	assert.Equal(t, []string{"ord-1"}, publisher.completed, "no second broadcast")
}

// With the marker unavailable the database guard alone carries idempotency.
func TestConfirmPaymentMarkerUnavailable(t *testing.T) {
	finalizer := &fakeFinalizer{productIDs: []string{"p1"}}
	marker := &fakeMarker{err: errors.New("redis down")}
	publisher := &fakePublisher{}
	s := newTestConfirmation(finalizer, marker, publisher)

	result, err := s.ConfirmPayment(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.False(t, result.AlreadyProcessed)

	result, err = s.ConfirmPayment(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.True(t, result.AlreadyProcessed)
	assert.Equal(t, 2, finalizer.calls)
	assert.Equal(t, []string{"ord-1"}, publisher.completed)
}

func TestConfirmPaymentWithoutMarker(t *testing.T) {
	finalizer := &fakeFinalizer{productIDs: []string{"p1"}}
	publisher := &fakePublisher{}
	s := newTestConfirmation(finalizer, nil, publisher)

	result, err := s.ConfirmPayment(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.False(t, result.AlreadyProcessed)

	result, err = s.ConfirmPayment(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.True(t, result.AlreadyProcessed)
}

func TestConfirmPaymentRequiresOrderID(t *testing.T) {
	s := newTestConfirmation(&fakeFinalizer{}, nil, &fakePublisher{})

	_, err := s.ConfirmPayment(context.Background(), "")
	require.Error(t, err)
}
