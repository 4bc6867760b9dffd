package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tair/payment-service/internal/payment/domain"
	"github.com/tair/payment-service/internal/payment/handler"
	"github.com/tair/payment-service/internal/payment/processor"
	"github.com/tair/payment-service/internal/payment/repository"
	"github.com/tair/payment-service/internal/payment/usecase"
	"github.com/tair/payment-service/internal/testutil"
	"github.com/tair/payment-service/pkg/auth"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	t      *testing.T
	router http.Handler
	db     *gorm.DB
}

func newServer(t *testing.T, proc domain.PaymentProcessor, manager *auth.Manager) *testServer {
	t.Helper()
	db := testutil.NewDB(t)
	repo := repository.NewGormPaymentRepository(db)

	if proc == nil {
		proc = processor.NewCustomProcessor("")
	}
	handlers := usecase.NewHandlers(repo, nil, proc, nil)
	h := handler.NewPaymentHandler(handlers, proc)
	cfg := handler.DefaultMiddlewareConfig(manager)
	cfg.EnableTracing = false

	return &testServer{t: t, router: handler.NewRouter(h, cfg, nil, nil), db: db}
}

func (s *testServer) do(method, path string, body any, headers map[string]string) (int, envelope) {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case []byte:
			buf.Write(b)
		default:
			require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func (s *testServer) create(headers map[string]string) domain.Payment {
	s.t.Helper()
	code, env := s.do(http.MethodPost, "/api/payments", map[string]any{
		"amount":         "19.90",
		"currency":       "USD",
		"customer_id":    "cust_1",
		"payment_method": "card",
		"metadata":       map[string]any{"order_id": "o-1"},
	}, headers)
	require.Equal(s.t, http.StatusCreated, code, env.Error)

	var p domain.Payment
	require.NoError(s.t, json.Unmarshal(env.Data, &p))
	return p
}

func TestRESTLifecycle(t *testing.T) {
	s := newServer(t, nil, nil)
	p := s.create(nil)
	assert.Equal(t, domain.StatusPending, p.Status)
	assert.Equal(t, "19.90", p.AmountString())

	code, env := s.do(http.MethodGet, "/api/payments/"+p.PaymentID, nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"amount":"19.90"`)

	code, env = s.do(http.MethodPost, "/api/payments/"+p.PaymentID+"/process", map[string]any{"action": "capture"}, nil)
	require.Equal(t, http.StatusOK, code)
	var captured domain.Payment
	require.NoError(t, json.Unmarshal(env.Data, &captured))
	assert.Equal(t, domain.StatusCaptured, captured.Status)
	assert.NotNil(t, captured.ProcessedAt)

	code, env = s.do(http.MethodPost, "/api/payments/"+p.PaymentID+"/process", map[string]any{"action": "capture"}, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, env.Success)

	code, env = s.do(http.MethodGet, "/api/payments", nil, nil)
	require.Equal(t, http.StatusOK, code)
	var list struct {
		Payments []domain.Payment `json:"payments"`
		Total    int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 1, list.Total)
}

func TestRESTErrorStatuses(t *testing.T) {
	s := newServer(t, nil, nil)

	code, env := s.do(http.MethodPost, "/api/payments", map[string]any{
		"amount": "-5.00", "currency": "USD", "customer_id": "c", "payment_method": "card",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid amount: -5.00", env.Error)

	code, _ = s.do(http.MethodPost, "/api/payments", []byte("{not json"), nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(http.MethodGet, "/api/payments/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(http.MethodPost, "/api/payments/missing/process", map[string]any{"action": "void"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRESTListEmpty(t *testing.T) {
	s := newServer(t, nil, nil)

	code, env := s.do(http.MethodGet, "/api/payments", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"payments":[],"total":0}`, string(env.Data))
}

func TestRESTHealth(t *testing.T) {
	s := newServer(t, nil, nil)

	code, env := s.do(http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), `"status":"ok"`)

	sqlDB, err := s.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	code, env = s.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, string(env.Data), `"status":"degraded"`)
}

func TestRESTAuthOnMutations(t *testing.T) {
	manager := auth.NewManager("secret", time.Hour)
	s := newServer(t, nil, manager)

	code, _ := s.do(http.MethodPost, "/api/payments", map[string]any{"amount": "1.00"}, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	token, err := manager.GenerateToken("ops", "admin")
	require.NoError(t, err)
	p := s.create(map[string]string{"Authorization": "Bearer " + token})

	code, _ = s.do(http.MethodGet, "/api/payments/"+p.PaymentID, nil, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodPost, "/api/payments/"+p.PaymentID+"/process", map[string]any{"action": "cancel"},
		map[string]string{"Authorization": "Bearer forged"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestWebhookAppliesTransition(t *testing.T) {
	proc := processor.NewCustomProcessor("whsec")
	s := newServer(t, proc, nil)
	p := s.create(nil)

	payload := []byte(`{"id":"evt_1","type":"payment.captured","data":{"payment_id":"` + p.PaymentID + `"}}`)
	headers := map[string]string{"X-Webhook-Signature": processor.SignCustomPayload("whsec", payload)}

	code, env := s.do(http.MethodPost, "/webhooks/custom", payload, headers)
	require.Equal(t, http.StatusOK, code, env.Error)
	var captured domain.Payment
	require.NoError(t, json.Unmarshal(env.Data, &captured))
	assert.Equal(t, domain.StatusCaptured, captured.Status)
	assert.Equal(t, "evt_1", captured.Metadata["webhook_event_id"])

	// redelivery is acknowledged
	code, env = s.do(http.MethodPost, "/webhooks/custom", payload, headers)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Event already applied", env.Message)
}

func TestWebhookRejections(t *testing.T) {
	proc := processor.NewCustomProcessor("whsec")
	s := newServer(t, proc, nil)

	payload := []byte(`{"type":"payment.captured","data":{"payment_id":"p-1"}}`)

	code, _ := s.do(http.MethodPost, "/webhooks/custom", payload, map[string]string{"X-Webhook-Signature": "00"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(http.MethodPost, "/webhooks/stripe", payload, nil)
	assert.Equal(t, http.StatusNotFound, code)

	ignored := []byte(`{"type":"customer.created","data":{}}`)
	code, env := s.do(http.MethodPost, "/webhooks/custom", ignored,
		map[string]string{"X-Webhook-Signature": processor.SignCustomPayload("whsec", ignored)})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Event ignored", env.Message)

	missing := []byte(`{"type":"payment.captured","data":{}}`)
	code, _ = s.do(http.MethodPost, "/webhooks/custom", missing,
		map[string]string{"X-Webhook-Signature": processor.SignCustomPayload("whsec", missing)})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestWebhookRefusedWithoutSecret(t *testing.T) {
	manager := auth.NewManager("secret", time.Hour)
	s := newServer(t, processor.NewCustomProcessor(""), manager)

	token, err := manager.GenerateToken("ops", "admin")
	require.NoError(t, err)
	p := s.create(map[string]string{"Authorization": "Bearer " + token})

	payload := []byte(`{"type":"payment.cancelled","data":{"payment_id":"` + p.PaymentID + `"}}`)
	code, _ := s.do(http.MethodPost, "/webhooks/custom", payload, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env := s.do(http.MethodGet, "/api/payments/"+p.PaymentID, nil, nil)
	require.Equal(t, http.StatusOK, code)
	var stored domain.Payment
	require.NoError(t, json.Unmarshal(env.Data, &stored))
	assert.Equal(t, domain.StatusPending, stored.Status)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, handler.StatusOf(&domain.ValidationError{}))
	assert.Equal(t, http.StatusNotFound, handler.StatusOf(&domain.NotFoundError{}))
	assert.Equal(t, http.StatusConflict, handler.StatusOf(&domain.InvalidTransitionError{}))
	assert.Equal(t, http.StatusBadGateway, handler.StatusOf(&domain.ProcessorError{}))
	assert.Equal(t, http.StatusServiceUnavailable, handler.StatusOf(&domain.StorageUnavailableError{}))
	assert.Equal(t, http.StatusInternalServerError, handler.StatusOf(assert.AnError))
}
