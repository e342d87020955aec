package motor

import (
	"encoding/json"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"rs485motor/pkg/apis/response"
	"rs485motor/pkg/protocol/modbusrtu/rtutest"
	"strings"
	"testing"
)

func newTestRouter(t *testing.T) (*gin.Engine, *rtutest.Slave) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, slave := newTestController(t)
	router := gin.New()
	InstallHandler(router.Group("/api/v1"), c)
	return router, slave
}

func serve(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetTelemetryHandler(t *testing.T) {
	router, _ := newTestRouter(t)

	w := serve(router, http.MethodGet, "/api/v1/motor/telemetry", "")
	require.Equal(t, http.StatusOK, w.Code)
	var telemetry Telemetry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &telemetry))
	assert.Equal(t, Telemetry{RPM: 1200, Current: 850}, telemetry)
}

func TestHandlerStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		fault  rtutest.Fault
		status int
	}{
		{"timeout", rtutest.Withhold, http.StatusGatewayTimeout},
		{"crc", rtutest.CorruptPayload, http.StatusBadGateway},
		{"io", rtutest.WriteFault, http.StatusBadGateway},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			router, slave := newTestRouter(t)
			slave.SetFault(c.fault)
			w := serve(router, http.MethodGet, "/api/v1/motor/telemetry", "")
			assert.Equal(t, c.status, w.Code)
			var body response.MultiError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Len(t, body.Codes(), 1)
		})
	}
}

func TestHandlerException(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := newTestController(t)
	// the slave has no register there and answers with an exception
	c.registers.Fault = 0x0100
	router := gin.New()
	InstallHandler(router.Group("/api/v1"), c)

	w := serve(router, http.MethodGet, "/api/v1/motor/fault", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "illegal data address")
	var body response.MultiError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []response.ErrCode{response.ErrCodeBusException}, body.Codes())
}

func TestGetFaultHandler(t *testing.T) {
	router, slave := newTestRouter(t)
	slave.SetRegister(0x0017, 0x0002)

	w := serve(router, http.MethodGet, "/api/v1/motor/fault", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"fault":2}`, w.Body.String())
}

func TestPutSpeedHandler(t *testing.T) {
	router, slave := newTestRouter(t)

	w := serve(router, http.MethodPut, "/api/v1/motor/speed", `{"value":1500}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"value":1000}`, w.Body.String())
	v, _ := slave.Register(0x0001)
	assert.Equal(t, uint16(1000), v)

	w = serve(router, http.MethodPut, "/api/v1/motor/speed", `{"value":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, http.MethodPut, "/api/v1/motor/speed", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPutControlHandler(t *testing.T) {
	router, slave := newTestRouter(t)

	w := serve(router, http.MethodPut, "/api/v1/motor/control", `{"enable":true,"direction":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	v, _ := slave.Register(0x0003)
	assert.Equal(t, uint16(1), v)
	v, _ = slave.Register(0x0002)
	assert.Equal(t, uint16(1), v)

	w = serve(router, http.MethodPut, "/api/v1/motor/control", `{"speed":4000,"brake":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"speed":1000,"brake":false}`, w.Body.String())
	v, _ = slave.Register(0x0001)
	assert.Equal(t, uint16(1000), v)

	w = serve(router, http.MethodPut, "/api/v1/motor/control", `{"throttle":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, slave.Requests(), 4)
}

func TestGetDirectionHandler(t *testing.T) {
	router, slave := newTestRouter(t)
	slave.SetRegister(0x0008, DirectionCCW)

	w := serve(router, http.MethodGet, "/api/v1/motor/direction", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"value":1,"direction":"ccw"}`, w.Body.String())
}

func TestPostStopHandler(t *testing.T) {
	router, slave := newTestRouter(t)

	w := serve(router, http.MethodPost, "/api/v1/motor/stop", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	v, _ := slave.Register(0x0004)
	assert.Equal(t, uint16(1), v)
}
