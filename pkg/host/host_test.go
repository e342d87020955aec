package host

import (
	"encoding/json"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "512MB", formatMB(512*mb+1))
	assert.Equal(t, "12.50%", formatPercent(12.5))
}

func TestGetHostMem(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	InstallHandler(router.Group("/api/v1"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/host/mem", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var model struct {
		Mem MemUsageInfo `json:"mem"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &model))
	assert.NotEmpty(t, model.Mem.Total)
}
