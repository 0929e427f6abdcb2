package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Origin 放行前端域名的跨域请求。空串表示不限制（本地联调）。
func Origin(allowed string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowed == "" || origin == "" || origin == allowed {
			if origin != "" {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Access-Control-Allow-Credentials", "true")
			}
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
			c.Next()
			return
		}
		c.AbortWithStatus(http.StatusForbidden)
	}
}
