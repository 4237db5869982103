// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"speak-coach-go/pkg/log"
)

// RequestLogger 是一个 Gin 中间件，用于记录请求日志。
// 不捕获请求/响应体：本服务的主要流量是 WebSocket 升级与音频载荷。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		log.Infow("HTTP Request Log",
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)
	}
}
