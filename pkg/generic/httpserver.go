package generic

import (
	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
	"net/http"
	"strings"
	"time"
)

func Default() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(logger(), gin.Recovery())
	return engine
}

func logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}
		klog.V(4).InfoS("Received HTTP request",
			"verb", c.Request.Method,
			"URI", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

// AllowMethods answers 405 to every request whose method is not listed.
func AllowMethods(methods ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		allowed[m] = struct{}{}
	}
	allow := strings.Join(methods, ", ")
	return func(c *gin.Context) {
		if _, ok := allowed[c.Request.Method]; !ok {
			c.Header("Allow", allow)
			c.AbortWithStatus(http.StatusMethodNotAllowed)
			return
		}
		c.Next()
	}
}
