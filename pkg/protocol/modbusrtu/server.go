package modbusrtu

import (
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
	"net/http"
	"rs485motor/pkg/apis"
	"rs485motor/pkg/apis/response"
	"strconv"
)

// InstallHandler exposes raw register access and bus counters.
func InstallHandler(group *gin.RouterGroup, m *Master) {
	group.GET("/registers/:"+apis.Address, readRegisters(m))
	group.PUT("/registers/:"+apis.Address, writeRegister(m))
	group.GET("/bus/stats", getStats(m))
}

type registerValues struct {
	Address uint16   `json:"address"`
	Values  []uint16 `json:"values"`
}

func readRegisters(m *Master) gin.HandlerFunc {
	return func(c *gin.Context) {
		address, err := parseUint16(c.Param(apis.Address))
		if err != nil {
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrInvalidArgument(apis.Address)))
			return
		}
		count, err := parseUint16(c.DefaultQuery(apis.Count, "1"))
		if err != nil {
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrInvalidArgument(apis.Count)))
			return
		}
		values, err := m.ReadHoldingRegisters(address, count)
		c.Header(apis.Slave, strconv.Itoa(int(m.Slave())))
		if err != nil {
			c.JSON(response.BusError(err))
			return
		}
		c.JSON(http.StatusOK, registerValues{Address: address, Values: values})
	}
}

func writeRegister(m *Master) gin.HandlerFunc {
	return func(c *gin.Context) {
		address, err := parseUint16(c.Param(apis.Address))
		if err != nil {
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrInvalidArgument(apis.Address)))
			return
		}
		var body apis.ValueBody
		if err := c.ShouldBindJSON(&body); err != nil {
			klog.V(2).InfoS("Failed to parse register value", "err", err)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
			return
		}
		if body.Value == nil || *body.Value < 0 || *body.Value > 0xFFFF {
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrInvalidArgument("value")))
			return
		}
		err = m.WriteSingleRegister(address, uint16(*body.Value))
		c.Header(apis.Slave, strconv.Itoa(int(m.Slave())))
		if err != nil {
			c.JSON(response.BusError(err))
			return
		}
		c.JSON(http.StatusOK, registerValues{Address: address, Values: []uint16{uint16(*body.Value)}})
	}
}

func getStats(m *Master) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, m.Stats())
	}
}

// parseUint16 accepts decimal and 0x-prefixed hexadecimal addresses.
func parseUint16(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %q", s)
	}
	return uint16(v), nil
}
