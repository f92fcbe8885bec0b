package middleware

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"adoor/estate/internal/config"
	"adoor/estate/internal/services"
)

// clientLimiter holds the token buckets for one client.
type clientLimiter struct {
	softLimiter *rate.Limiter
	hardLimiter *rate.Limiter
	lastSeen    time.Time
}

// RateLimiterMiddleware applies a two-tier limit per client: exhausting the
// soft bucket demands a captcha, exhausting the hard bucket rejects outright.
// Per-endpoint overrides come from the config service; everything else uses
// the global defaults in Config.
type RateLimiterMiddleware struct {
	clients       map[string]*clientLimiter
	mu            sync.Mutex
	cfg           *config.Config
	configService services.IConfigService
}

func NewRateLimiterMiddleware(cfg *config.Config, configService services.IConfigService) *RateLimiterMiddleware {
	rm := &RateLimiterMiddleware{
		clients:       make(map[string]*clientLimiter),
		cfg:           cfg,
		configService: configService,
	}
	go rm.cleanupClients()
	return rm
}

// getClientIdentifier keys clients by IP, browser fingerprint and SPA session.
func getClientIdentifier(c *gin.Context) string {
	ip := c.ClientIP()
	fingerprint := c.GetHeader("X-BFP")
	spaSession := c.GetHeader("X-SPA")
	return fmt.Sprintf("%s|%s|%s", ip, fingerprint, spaSession)
}

func (rm *RateLimiterMiddleware) getClientLimiter(identifier string, softRate, softBurst, hardRate, hardBurst int) *clientLimiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	limiter, exists := rm.clients[identifier]
	if !exists {
		limiter = &clientLimiter{
			softLimiter: rate.NewLimiter(rate.Limit(softRate), softBurst),
			hardLimiter: rate.NewLimiter(rate.Limit(hardRate), hardBurst),
		}
		rm.clients[identifier] = limiter
	}
	limiter.lastSeen = time.Now()
	return limiter
}

// cleanupClients drops client entries not seen for half an hour.
func (rm *RateLimiterMiddleware) cleanupClients() {
	for {
		time.Sleep(10 * time.Minute)
		rm.mu.Lock()
		count := 0
		for id, client := range rm.clients {
			if time.Since(client.lastSeen) > 30*time.Minute {
				delete(rm.clients, id)
				count++
			}
		}
		rm.mu.Unlock()
		if count > 0 {
			log.Printf("Rate limiter cleanup removed %d old client entries.", count)
		}
	}
}

// Limit returns the Gin middleware handler.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := getClientIdentifier(c)
		endpoint := c.FullPath()

		// The limiter always consults the guest-tier endpoint config; limits
		// do not loosen just because a JWT is present.
		apiCfg, err := rm.configService.GetAPIEndpointConfig(c.Request.Context(), endpoint, false)
		if err != nil {
			log.Printf("Error fetching API config for %s (guest): %v. Using defaults.", endpoint, err)
		}

		softRate := rm.cfg.RateLimitSoftRefillRate
		softBurst := rm.cfg.RateLimitSoftBucketSize
		hardRate := rm.cfg.RateLimitHardRefillRate
		hardBurst := rm.cfg.RateLimitHardBucketSize

		if apiCfg != nil {
			if apiCfg.RateLimitSoft != nil {
				softRate = apiCfg.RateLimitSoft.TokenRefillRate
				softBurst = apiCfg.RateLimitSoft.BucketSize
			}
			if apiCfg.RateLimitHard != nil {
				hardRate = apiCfg.RateLimitHard.TokenRefillRate
				hardBurst = apiCfg.RateLimitHard.BucketSize
			}
		}

		limiter := rm.getClientLimiter(clientKey, softRate, softBurst, hardRate, hardBurst)

		if !limiter.hardLimiter.Allow() {
			log.Printf("Hard rate limit exceeded for client: %s on %s", clientKey, endpoint)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}

		// Clients the captcha middleware verified as human skip the soft bucket.
		isHuman := c.GetBool(ContextKeyIsHumanVerified)

		if !isHuman && !limiter.softLimiter.Allow() {
			log.Printf("Soft rate limit exceeded for client: %s on %s (captcha required)", clientKey, endpoint)
			c.AbortWithStatusJSON(http.StatusTeapot, gin.H{"error": "Captcha validation required"})
			return
		}

		c.Next()
	}
}
