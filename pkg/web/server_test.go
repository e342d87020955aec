package web

import (
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
	"net/http"
	"net/http/httptest"
	"rs485motor/cmd/motorctl/config"
	"rs485motor/cmd/motorctl/options"
	"rs485motor/pkg/motor"
	"rs485motor/pkg/protocol/modbusrtu"
	"rs485motor/pkg/protocol/modbusrtu/rtutest"
	"rs485motor/pkg/transport"
	"testing"
	"time"
)

func TestInstallHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	o := options.NewDefaultOptions()
	clock := testingclock.NewFakeClock(time.Now())
	slave := rtutest.NewSlave(o.Bus.Slave, clock)
	slave.SetRegister(o.Registers.RPM, 1200)
	slave.SetRegister(o.Registers.Current, 850)
	master, err := modbusrtu.NewMaster(o.Bus.Slave, transport.NewAdapter(slave, slave, transport.WithClock(clock)),
		modbusrtu.Options{ResponseTimeout: time.Second, Clock: clock})
	require.NoError(t, err)
	controller, err := motor.NewController(master, o.Registers, o.ProtocolMax)
	require.NoError(t, err)

	server, err := NewServer(gin.New(), o, &config.Config{Master: master, Controller: controller})
	require.NoError(t, err)
	assert.Equal(t, "32300", server.Port)

	for path, status := range map[string]int{
		"/api/v1/motor/telemetry":      http.StatusOK,
		"/api/v1/registers/0x15":       http.StatusOK,
		"/api/v1/bus/stats":            http.StatusOK,
		"/api/v1/motor/fault":          http.StatusUnprocessableEntity,
		"/api/v1/motor/does-not-exist": http.StatusNotFound,
	} {
		w := httptest.NewRecorder()
		server.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, status, w.Code, path)
	}

	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/motor/telemetry", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "POST, GET, PUT", w.Header().Get("Allow"))
}
