package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
)

// SecureOptions returns the security headers applied to API responses.
func SecureOptions(isDevelopment bool) secure.Options {
	return secure.Options{
		IsDevelopment:      isDevelopment,
		ContentTypeNosniff: true,
		FrameDeny:          true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}
}

// SecureHeaders adapts unrolled/secure to gin.
func SecureHeaders(opts secure.Options) gin.HandlerFunc {
	s := secure.New(opts)
	return func(c *gin.Context) {
		if err := s.Process(c.Writer, c.Request); err != nil {
			c.Abort()
			return
		}
		if status := c.Writer.Status(); status > 300 && status < 399 {
			c.Abort()
		}
	}
}
