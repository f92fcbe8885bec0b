package middleware

import (
	"log"

	"github.com/gin-gonic/gin"

	"adoor/estate/internal/captcha"
	"adoor/estate/internal/config"
)

// ContextKeyIsHumanVerified marks in the Gin context whether the client has
// passed a captcha check on this request.
const ContextKeyIsHumanVerified = "isHumanVerified"

// CaptchaMiddleware validates a presented X-C-T human token or, failing that,
// verifies a fresh X-C-V Turnstile challenge. A passed challenge earns a new
// X-C-T token in the response header. The middleware never blocks the request
// itself; the rate limiter downstream decides what non-human traffic may do.
func CaptchaMiddleware(cfg *config.Config, verifier captcha.ITurnstileVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		fingerprint := c.GetHeader("X-BFP")
		spaSession := c.GetHeader("X-SPA")
		humanToken := c.GetHeader("X-C-T")
		challenge := c.GetHeader("X-C-V")

		isHuman := false

		if humanToken != "" {
			if verifier.ValidateHumanToken(humanToken, clientIP, fingerprint, spaSession) {
				isHuman = true
			}
		}

		if !isHuman && challenge != "" {
			verified, err := verifier.Verify(c.Request.Context(), challenge, clientIP)
			if err != nil {
				log.Printf("Error verifying Turnstile token: %v", err)
			} else if verified {
				isHuman = true
				newToken, tokenErr := verifier.GenerateHumanToken("", clientIP, fingerprint, spaSession, cfg.CaptchaTokenTTL)
				if tokenErr != nil {
					log.Printf("Error generating X-C-T token after successful verification: %v", tokenErr)
				} else {
					c.Header("X-C-T", newToken)
				}
			}
		}

		c.Set(ContextKeyIsHumanVerified, isHuman)
		c.Next()
	}
}
