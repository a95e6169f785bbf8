// README: Recovery middleware: a panicking handler becomes a logged 500.
package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dishbee/internal/infra"
)

func Recovery(log *zap.Logger, reporter infra.Reporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("handler panic",
					zap.Any("panic", r),
					zap.String("path", c.FullPath()),
					zap.String("request_id", c.GetString(requestIDKey)),
					zap.Stack("stack"))
				reporter.Report(fmt.Errorf("panic: %v", r), map[string]string{"path": c.FullPath()})
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()
		c.Next()
	}
}
