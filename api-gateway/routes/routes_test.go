package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tair/payment-service/api-gateway/backend"
	"github.com/tair/payment-service/api-gateway/backend/backendtest"
	"github.com/tair/payment-service/api-gateway/health"
	"github.com/tair/payment-service/api-gateway/middleware"
	"github.com/tair/payment-service/pkg/auth"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type payment struct {
	PaymentID string `json:"payment_id"`
	Amount    string `json:"amount"`
	Status    string `json:"status"`
}

func newApp(t *testing.T, manager *auth.Manager) (*fiber.App, *backendtest.Client) {
	t.Helper()
	client := backendtest.NewClient()
	b := &backend.Backend{Address: "fake", Client: client, Breaker: middleware.NewCircuitBreaker("fake", 5, time.Minute)}

	app := fiber.New()
	SetupRoutes(app, backend.NewPool([]*backend.Backend{b}), health.NewHealthChecker([]*backend.Backend{b}), manager, time.Second)
	return app, client
}

func do(t *testing.T, app *fiber.App, method, path, body string, headers ...string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &env)
	}
	return resp.StatusCode, env
}

func TestPaymentLifecycleThroughGateway(t *testing.T) {
	app, _ := newApp(t, nil)

	code, env := do(t, app, http.MethodPost, "/api/payments",
		`{"amount":"10.50","currency":"USD","customer_id":"c1","payment_method":"card"}`)
	require.Equal(t, http.StatusCreated, code)
	var created payment
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "pending", created.Status)

	code, env = do(t, app, http.MethodGet, "/api/payments/"+created.PaymentID, "")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	code, env = do(t, app, http.MethodPost, "/api/payments/"+created.PaymentID+"/process", `{"action":"capture"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Payment captured", env.Message)

	code, env = do(t, app, http.MethodPost, "/api/payments/"+created.PaymentID+"/process", `{"action":"capture"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, env.Success)

	code, env = do(t, app, http.MethodGet, "/api/payments", "")
	require.Equal(t, http.StatusOK, code)
	var list struct {
		Payments []payment `json:"payments"`
		Total    int       `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 1, list.Total)
}

func TestGateway_ErrorMapping(t *testing.T) {
	app, client := newApp(t, nil)

	code, _ := do(t, app, http.MethodGet, "/api/payments/missing", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, app, http.MethodPost, "/api/payments", `{"currency":"USD"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, app, http.MethodPost, "/api/payments", `{not json`)
	assert.Equal(t, http.StatusBadRequest, code)

	client.SetErr(status.Error(codes.Internal, "db password leaked"))
	code, env := do(t, app, http.MethodGet, "/api/payments", "")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal error", env.Error)
}

func TestGateway_EmptyList(t *testing.T) {
	app, _ := newApp(t, nil)

	code, env := do(t, app, http.MethodGet, "/api/payments", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"payments":[],"total":0}`, string(env.Data))
}

func TestGateway_AuthOnMutatingRoutes(t *testing.T) {
	manager := auth.NewManager("secret", time.Hour)
	app, client := newApp(t, manager)

	code, _ := do(t, app, http.MethodPost, "/api/payments",
		`{"amount":"1","currency":"USD","customer_id":"c","payment_method":"card"}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do(t, app, http.MethodGet, "/api/payments", "")
	assert.Equal(t, http.StatusOK, code)

	token, err := manager.GenerateToken("user-1", "user")
	require.NoError(t, err)
	code, _ = do(t, app, http.MethodPost, "/api/payments",
		`{"amount":"1","currency":"USD","customer_id":"c","payment_method":"card"}`,
		"Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Bearer "+token, client.Authorization())
}

func TestGateway_Health(t *testing.T) {
	app, client := newApp(t, nil)

	code, _ := do(t, app, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, app, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, code)

	client.SetErr(status.Error(codes.Unavailable, "down"))
	code, _ = do(t, app, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, _ = do(t, app, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code codes.Code
		want int
	}{
		{codes.InvalidArgument, http.StatusBadRequest},
		{codes.NotFound, http.StatusNotFound},
		{codes.FailedPrecondition, http.StatusConflict},
		{codes.Aborted, http.StatusBadGateway},
		{codes.Unavailable, http.StatusServiceUnavailable},
		{codes.Unauthenticated, http.StatusUnauthorized},
		{codes.DeadlineExceeded, http.StatusGatewayTimeout},
		{codes.Internal, http.StatusInternalServerError},
		{codes.Unknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(status.Error(tt.code, "x")))
		})
	}
}
