package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestRouter(log *zap.Logger, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(RequestIDContextKey, "req-123")
	})
	router.Use(Recovery(log), GinMiddleware(log))
	router.GET("/api/v1/sales/report", handler)
	return router
}

func TestGinMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  zapcore.Level
	}{
		{"ok", http.StatusOK, zapcore.InfoLevel},
		{"bad request", http.StatusBadRequest, zapcore.WarnLevel},
		{"upstream failure", http.StatusBadGateway, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			router := newTestRouter(zap.New(core), func(c *gin.Context) {
				L(c.Request.Context()).Debug("from handler")
				c.Status(tt.status)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/sales/report?start=2024-05-01", nil)
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)

			logs := recorded.All()
			require.Len(t, logs, 2)

			handlerLog := logs[0]
			assert.Equal(t, "from handler", handlerLog.Message)
			assert.Equal(t, "req-123", handlerLog.ContextMap()["request_id"])

			reqLog := logs[1]
			assert.Equal(t, "HTTP Request", reqLog.Message)
			assert.Equal(t, tt.level, reqLog.Level)
			fields := reqLog.ContextMap()
			assert.Equal(t, "req-123", fields["request_id"])
			assert.Equal(t, "GET", fields["method"])
			assert.Equal(t, "/api/v1/sales/report", fields["path"])
			assert.Equal(t, "start=2024-05-01", fields["query"])
			assert.Equal(t, int64(tt.status), fields["status"])
		})
	}
}

func TestRecovery(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)
	router := newTestRouter(zap.New(core), func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sales/report", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	panics := recorded.FilterMessage("Panic recovered").All()
	require.Len(t, panics, 1)
	assert.Equal(t, "req-123", panics[0].ContextMap()["request_id"])
}
