package query_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/tair/payment-service/internal/payment/cache"
	"github.com/tair/payment-service/internal/payment/domain"
	"github.com/tair/payment-service/internal/payment/repository"
	"github.com/tair/payment-service/internal/payment/usecase/query"
	"github.com/tair/payment-service/internal/testutil"
)

func seed(t *testing.T, repo domain.PaymentRepository, createdAt time.Time) *domain.Payment {
	t.Helper()
	p := &domain.Payment{
		PaymentID:     uuid.NewString(),
		Amount:        decimal.RequireFromString("9.99"),
		Currency:      "GBP",
		CustomerID:    "cust_1",
		PaymentMethod: "card",
		Metadata:      datatypes.JSONMap{},
		Status:        domain.StatusPending,
		CreatedAt:     createdAt.UTC(),
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestGetPaymentReadThrough(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewGormPaymentRepository(testutil.NewDB(t))
	client, mr := testutil.NewRedis(t)
	c := cache.NewRedisCache(client)
	h := query.NewGetPaymentHandler(repo, c)

	p := seed(t, repo, time.Now())

	got, err := h.Handle(ctx, query.GetPaymentQuery{PaymentID: p.PaymentID})
	require.NoError(t, err)
	assert.Equal(t, p.PaymentID, got.PaymentID)
	assert.True(t, mr.Exists(cache.Key(p.PaymentID)))
	assert.Equal(t, domain.CacheTTL, mr.TTL(cache.Key(p.PaymentID)))
}

func TestGetPaymentServesCacheHit(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewGormPaymentRepository(testutil.NewDB(t))
	client, _ := testutil.NewRedis(t)
	c := cache.NewRedisCache(client)
	h := query.NewGetPaymentHandler(repo, c)

	// only in the cache, so a hit must not touch the store
	cached := &domain.Payment{PaymentID: "cached-only", Amount: decimal.NewFromInt(1), Currency: "USD", Status: domain.StatusCaptured}
	require.NoError(t, c.Put(ctx, cached, domain.CacheTTL))

	got, err := h.Handle(ctx, query.GetPaymentQuery{PaymentID: "cached-only"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCaptured, got.Status)
}

func TestGetPaymentFallsBackWhenCacheDown(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewGormPaymentRepository(testutil.NewDB(t))
	client, mr := testutil.NewRedis(t)
	h := query.NewGetPaymentHandler(repo, cache.NewRedisCache(client))
	mr.Close()

	p := seed(t, repo, time.Now())
	got, err := h.Handle(ctx, query.GetPaymentQuery{PaymentID: p.PaymentID})
	require.NoError(t, err)
	assert.Equal(t, p.PaymentID, got.PaymentID)
}

func TestGetPaymentWithHungCacheStaysFast(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewGormPaymentRepository(testutil.NewDB(t))
	client := redis.NewClient(cache.ClientOptions(testutil.SilentAddr(t), "", 0))
	t.Cleanup(func() { _ = client.Close() })
	h := query.NewGetPaymentHandler(repo, cache.NewRedisCache(client))

	p := seed(t, repo, time.Now())
	start := time.Now()
	got, err := h.Handle(ctx, query.GetPaymentQuery{PaymentID: p.PaymentID})
	require.NoError(t, err)
	assert.Equal(t, p.PaymentID, got.PaymentID)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGetPaymentErrors(t *testing.T) {
	h := query.NewGetPaymentHandler(repository.NewGormPaymentRepository(testutil.NewDB(t)), nil)

	_, err := h.Handle(context.Background(), query.GetPaymentQuery{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.Handle(context.Background(), query.GetPaymentQuery{PaymentID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListPaymentsCreationOrderBypassesCache(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewGormPaymentRepository(testutil.NewDB(t))
	h := query.NewListPaymentsHandler(repo)

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	second := seed(t, repo, base.Add(time.Minute))
	first := seed(t, repo, base)

	list, err := h.Handle(ctx, query.ListPaymentsQuery{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.PaymentID, list[0].PaymentID)
	assert.Equal(t, second.PaymentID, list[1].PaymentID)
}

func TestHealthCheck(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewGormPaymentRepository(db)
	client, mr := testutil.NewRedis(t)

	report := query.NewHealthCheckHandler(repo, nil).Handle(ctx)
	assert.Equal(t, query.HealthOK, report.Status)
	assert.Equal(t, query.ComponentUp, report.Store)
	assert.Equal(t, query.ComponentDisabled, report.Cache)

	h := query.NewHealthCheckHandler(repo, cache.NewRedisCache(client))
	report = h.Handle(ctx)
	assert.Equal(t, query.ComponentUp, report.Cache)

	mr.Close()
	report = h.Handle(ctx)
	assert.Equal(t, query.HealthOK, report.Status)
	assert.Equal(t, query.ComponentDown, report.Cache)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	report = h.Handle(ctx)
	assert.Equal(t, query.HealthDegraded, report.Status)
	assert.Equal(t, query.ComponentDown, report.Store)
	assert.False(t, report.Healthy())
}
