package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OpenCORS разрешает запросы с любого origin для вебхуков и пикселей,
// встроенных на сторонние страницы. Preflight OPTIONS отвечает 204.
func OpenCORS(methods string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", methods)
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
