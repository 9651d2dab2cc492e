package webhook

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"receptionist_backend/platform/config"
	"receptionist_backend/platform/logger"
)

// SecretHeader carries the shared secret on every inbound voice-platform
// request.
const SecretHeader = "X-Webhook-Secret"

// SharedSecretAuth validates the shared-secret header before any handler
// logic runs. Comparison is constant time; a missing configured secret
// rejects everything rather than opening the surface.
func SharedSecretAuth(cfg config.WebhookConfig, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := cfg.GetWebhookSecret()
		presented := c.GetHeader(SecretHeader)

		if secret == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
			log.WithContext(c.Request.Context()).Warn("webhook auth rejected",
				"path", c.Request.URL.Path, "client_ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
