package middleware

import "github.com/gin-gonic/gin"

var apiHeaders = map[string]string{
	"X-Content-Type-Options":  "nosniff",
	"X-Frame-Options":         "DENY",
	"Referrer-Policy":         "no-referrer",
	"Cache-Control":           "no-store",
	"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
}

// SafeHeader adds security-related headers to every JSON response. HSTS is
// only sent in release mode.
func SafeHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		for k, v := range apiHeaders {
			c.Header(k, v)
		}
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}
		c.Next()
	}
}
