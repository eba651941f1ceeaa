package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/shop-core/internal/customer"
	handler "github.com/vasiliy-maslov/shop-core/internal/handler/http"
)

func TestHealth(t *testing.T) {
	tests := []struct {
		name           string
		ping           func(ctx context.Context) error
		expectedStatus int
	}{
		{name: "no_store_check", expectedStatus: http.StatusOK},
		{name: "store_up", ping: func(context.Context) error { return nil }, expectedStatus: http.StatusOK},
		{name: "store_down", ping: func(context.Context) error { return errors.New("down") }, expectedStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(Dependencies{JWTSecret: []byte("s"), Ping: tt.ping})
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	secret := []byte("s")
	router := NewRouter(Dependencies{JWTSecret: secret})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/reports/summary", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token, err := handler.IssueToken(secret, "alice", customer.RoleUser, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/summary", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
