package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/tair/payment-service/internal/payment/domain"
	"github.com/tair/payment-service/internal/payment/repository"
	"github.com/tair/payment-service/internal/testutil"
)

func newPayment(createdAt time.Time) *domain.Payment {
	return &domain.Payment{
		PaymentID:     uuid.NewString(),
		Amount:        decimal.RequireFromString("12.34"),
		Currency:      "USD",
		CustomerID:    "cust_1",
		PaymentMethod: "card",
		Metadata:      datatypes.JSONMap{"order_id": "o-1"},
		Status:        domain.StatusPending,
		CreatedAt:     createdAt.UTC(),
	}
}

func TestCreateAndFindByID(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewGormPaymentRepositoryWithTracing(testutil.NewDB(t))

	p := newPayment(time.Now())
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.FindByID(ctx, p.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, p.PaymentID, got.PaymentID)
	assert.Equal(t, "12.34", got.AmountString())
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, "o-1", got.Metadata["order_id"])
	assert.Nil(t, got.ProcessedAt)
}

func TestFindByIDNotFound(t *testing.T) {
	repo := repository.NewGormPaymentRepository(testutil.NewDB(t))

	_, err := repo.FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "payment not found: missing", err.Error())
}

func TestFindAllInCreationOrder(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewGormPaymentRepository(testutil.NewDB(t))

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	third := newPayment(base.Add(2 * time.Second))
	first := newPayment(base)
	second := newPayment(base.Add(time.Second))
	for _, p := range []*domain.Payment{third, first, second} {
		require.NoError(t, repo.Create(ctx, p))
	}

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, first.PaymentID, all[0].PaymentID)
	assert.Equal(t, second.PaymentID, all[1].PaymentID)
	assert.Equal(t, third.PaymentID, all[2].PaymentID)
}

func TestFindAllEmpty(t *testing.T) {
	all, err := repository.NewGormPaymentRepository(testutil.NewDB(t)).FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestTransitionStatus(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewGormPaymentRepository(testutil.NewDB(t))

	p := newPayment(time.Now())
	require.NoError(t, repo.Create(ctx, p))

	processedAt := time.Now().UTC()
	updated, err := repo.TransitionStatus(ctx, p.PaymentID, domain.StatusPending, domain.StatusCaptured, processedAt,
		map[string]any{"order_id": "o-1", "note": "captured"}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCaptured, updated.Status)
	require.NotNil(t, updated.ProcessedAt)
	assert.Equal(t, "captured", updated.Metadata["note"])
	assert.Equal(t, "12.34", updated.AmountString())

	_, err = repo.TransitionStatus(ctx, p.PaymentID, domain.StatusPending, domain.StatusCancelled, processedAt, nil, nil)
	assert.ErrorIs(t, err, domain.ErrStatusChanged)

	stored, err := repo.FindByID(ctx, p.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCaptured, stored.Status)
}

func TestTransitionStatusApply(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewGormPaymentRepository(testutil.NewDB(t))

	p := newPayment(time.Now())
	require.NoError(t, repo.Create(ctx, p))

	declined := errors.New("declined")
	_, err := repo.TransitionStatus(ctx, p.PaymentID, domain.StatusPending, domain.StatusCaptured, time.Now(), nil,
		func(context.Context) error { return declined })
	assert.ErrorIs(t, err, declined)
	assert.NotErrorIs(t, err, domain.ErrStorageUnavailable)

	stored, err := repo.FindByID(ctx, p.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Nil(t, stored.ProcessedAt)

	applied := 0
	apply := func(context.Context) error { applied++; return nil }
	_, err = repo.TransitionStatus(ctx, p.PaymentID, domain.StatusPending, domain.StatusCancelled, time.Now(), nil, apply)
	require.NoError(t, err)
	_, err = repo.TransitionStatus(ctx, p.PaymentID, domain.StatusPending, domain.StatusCaptured, time.Now(), nil, apply)
	assert.ErrorIs(t, err, domain.ErrStatusChanged)
	assert.Equal(t, 1, applied)
}

func TestTransitionStatusNotFound(t *testing.T) {
	repo := repository.NewGormPaymentRepository(testutil.NewDB(t))

	_, err := repo.TransitionStatus(context.Background(), "missing", domain.StatusPending, domain.StatusCaptured, time.Now(), nil, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransitionStatusExactlyOneWinner(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewGormPaymentRepository(testutil.NewDB(t))

	p := newPayment(time.Now())
	require.NoError(t, repo.Create(ctx, p))

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.TransitionStatus(ctx, p.PaymentID, domain.StatusPending, domain.StatusCaptured, time.Now(), nil, nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrStatusChanged):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, workers-1, conflicts)
}

func TestStorageErrorsAreWrapped(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewGormPaymentRepository(db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = repo.FindByID(context.Background(), "any")
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.ErrorIs(t, repo.Ping(context.Background()), domain.ErrStorageUnavailable)
}
