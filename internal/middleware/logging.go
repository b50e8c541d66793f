package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"valuation-form-go/pkg/log"
)

// RequestLogger 是一个 Gin 中间件，记录每个请求的状态码、耗时和来源。
// 聚合模板响应体较大，这里只记录响应字节数。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		fields := []interface{}{
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"responseBytes", c.Writer.Size(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}
		log.Infow("HTTP Request Log", fields...)
	}
}
