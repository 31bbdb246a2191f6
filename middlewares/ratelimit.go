package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// NewIPRateLimiter limits requests by client IP with an in-memory store.
// rateFormatted: "100-M", "1000-H", "50-S". Empty disables the limit.
func NewIPRateLimiter(rateFormatted string) (gin.HandlerFunc, error) {
	if rateFormatted == "" {
		return func(c *gin.Context) { c.Next() }, nil
	}
	rate, err := limiter.NewRateFromFormatted(rateFormatted)
	if err != nil {
		return nil, err
	}
	instance := limiter.New(memory.NewStore(), rate)
	return mgin.NewMiddleware(instance), nil
}
