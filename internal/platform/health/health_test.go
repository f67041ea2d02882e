package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	r := gin.New()
	h.RegisterRoutes(r)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestLive(t *testing.T) {
	w := serve(NewHandler("service-booking"), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)
}

func TestReady(t *testing.T) {
	h := NewHandler("service-booking").
		AddCheck("database", func(context.Context) error { return nil })

	w := serve(h, "/health/ready")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadyReportsFailingComponent(t *testing.T) {
	h := NewHandler("service-booking").
		AddCheck("database", func(context.Context) error { return nil }).
		AddCheck("redis", func(context.Context) error { return errors.New("connection refused") })

	w := serve(h, "/health/ready")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body.Status)
	assert.Equal(t, "healthy", body.Components["database"])
	assert.Equal(t, "unhealthy: connection refused", body.Components["redis"])
}
