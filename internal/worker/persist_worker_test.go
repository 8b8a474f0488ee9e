package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/okarpenko/weather-range-service/internal/core/domain"
	"github.com/okarpenko/weather-range-service/internal/core/ports"
	"github.com/okarpenko/weather-range-service/internal/observability"
)

// MockObservationStore is a mock implementation of the ObservationStore interface.
type MockObservationStore struct {
	mock.Mock
}

func (m *MockObservationStore) LookupRange(ctx context.Context, city string, r domain.DateRange) ([]domain.DailyObservation, error) {
	args := m.Called(ctx, city, r)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.DailyObservation), args.Error(1)
}

func (m *MockObservationStore) StoreObservations(ctx context.Context, observations []domain.DailyObservation) error {
	args := m.Called(ctx, observations)
	return args.Error(0)
}

func testJob(id string) ports.PersistJob {
	return ports.PersistJob{
		ID: id,
		Observations: []domain.DailyObservation{
			{City: "Kyiv", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Temperature: 4.2},
		},
	}
}

func TestPersistQueue_ProcessesEnqueuedJob(t *testing.T) {
	store := new(MockObservationStore)
	stored := make(chan struct{})

	store.On("StoreObservations", mock.Anything, mock.Anything).
		Return(nil).
		Run(func(_ mock.Arguments) { close(stored) }).
		Once()

	q := NewPersistQueue(store, 4, observability.NewPersistMetricsForTesting(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go q.Run(ctx)

	q.Enqueue(testJob("job-1"))

	select {
	case <-stored:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never stored the batch")
	}

	cancel()
	<-q.Done()

	store.AssertExpectations(t)
}

func TestPersistQueue_DrainsBufferedJobsOnShutdown(t *testing.T) {
	store := new(MockObservationStore)
	store.On("StoreObservations", mock.Anything, mock.Anything).Return(nil).Times(3)

	q := NewPersistQueue(store, 8, observability.NewPersistMetricsForTesting(), zap.NewNop())

	// Enqueue before the worker starts so everything sits in the buffer.
	q.Enqueue(testJob("job-1"))
	q.Enqueue(testJob("job-2"))
	q.Enqueue(testJob("job-3"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	go q.Run(ctx)
	<-q.Done()

	store.AssertExpectations(t)
}

func TestPersistQueue_DropsWhenFull(t *testing.T) {
	store := new(MockObservationStore)
	q := NewPersistQueue(store, 1, observability.NewPersistMetricsForTesting(), zap.NewNop())

	// No worker running: the second job has nowhere to go and is dropped
	// instead of blocking the request path.
	q.Enqueue(testJob("job-1"))
	q.Enqueue(testJob("job-2"))

	store.AssertNotCalled(t, "StoreObservations", mock.Anything, mock.Anything)
}

func TestPersistQueue_StoreFailureDoesNotStopWorker(t *testing.T) {
	store := new(MockObservationStore)
	second := make(chan struct{})

	store.On("StoreObservations", mock.Anything, mock.Anything).
		Return(assert.AnError).Once()
	store.On("StoreObservations", mock.Anything, mock.Anything).
		Return(nil).
		Run(func(_ mock.Arguments) { close(second) }).
		Once()

	q := NewPersistQueue(store, 4, observability.NewPersistMetricsForTesting(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go q.Run(ctx)

	q.Enqueue(testJob("job-1"))
	q.Enqueue(testJob("job-2"))

	select {
	case <-second:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive a store failure")
	}

	cancel()
	<-q.Done()

	require.True(t, store.AssertExpectations(t))
}
