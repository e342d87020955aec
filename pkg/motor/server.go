package motor

import (
	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
	"net/http"
	"rs485motor/pkg/apis"
	"rs485motor/pkg/apis/response"
)

func InstallHandler(group *gin.RouterGroup, c *Controller) {
	group.GET("/motor/telemetry", getTelemetry(c))
	group.GET("/motor/fault", getFault(c))
	group.GET("/motor/direction", getDirection(c))
	group.GET("/motor/speed", getSpeed(c))
	group.PUT("/motor/speed", putSpeed(c))
	group.PUT("/motor/control", putControl(c))
	group.POST("/motor/stop", postStop(c))
}

func getTelemetry(c *Controller) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		telemetry, err := c.ReadMotorTelemetry()
		if err != nil {
			ctx.JSON(response.BusError(err))
			return
		}
		ctx.JSON(http.StatusOK, telemetry)
	}
}

func getFault(c *Controller) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		fault, err := c.ReadMotorFault()
		if err != nil {
			ctx.JSON(response.BusError(err))
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"fault": fault})
	}
}

func getDirection(c *Controller) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		direction, err := c.ReadMotorDirection()
		if err != nil {
			ctx.JSON(response.BusError(err))
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"value": direction, "direction": DirectionName(direction)})
	}
}

func getSpeed(c *Controller) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		speed, err := c.ReadSpeedSetpoint()
		if err != nil {
			ctx.JSON(response.BusError(err))
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"value": speed})
	}
}

func putSpeed(c *Controller) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var body apis.ValueBody
		if err := ctx.ShouldBindJSON(&body); err != nil {
			klog.V(2).InfoS("Failed to parse speed", "err", err)
			ctx.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
			return
		}
		if body.Value == nil {
			ctx.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrInvalidArgument("value")))
			return
		}
		if err := c.SetMotorSpeed(*body.Value); err != nil {
			ctx.JSON(response.BusError(err))
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"value": c.ClampSpeed(*body.Value)})
	}
}

func putControl(c *Controller) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var body map[string]interface{}
		if err := ctx.ShouldBindJSON(&body); err != nil {
			klog.V(2).InfoS("Failed to parse motor command", "err", err)
			ctx.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
			return
		}
		cmd, err := DecodeCommand(body)
		if err != nil {
			klog.V(2).InfoS("Failed to decode motor command", "err", err)
			ctx.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrRequestBody))
			return
		}
		if err := c.Apply(cmd); err != nil {
			ctx.JSON(response.BusError(err))
			return
		}
		if cmd.Speed != nil {
			applied := int(c.ClampSpeed(*cmd.Speed))
			cmd.Speed = &applied
		}
		ctx.JSON(http.StatusOK, cmd)
	}
}

func postStop(c *Controller) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if err := c.Stop(); err != nil {
			ctx.JSON(response.BusError(err))
			return
		}
		ctx.Status(http.StatusNoContent)
	}
}
