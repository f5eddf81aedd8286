package http

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatroom/internal/adapters/signal"
)

const (
	clientTokenSessionKey = "ct"
	clientTokenMaxAge     = 3600 * 24 * 30
	adminSecretHeader     = "X-Admin-Secret"
)

var ErrUnauthorized = errors.New("unauthorized")

// ClientTokenMiddleware keeps a per-device token in the signed cookie session.
// It is the client identity of last resort when a join carries none.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(clientTokenSessionKey).(string)
		if token == "" {
			token = uuid.NewString()
			session.Set(clientTokenSessionKey, token)
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save client token")
			}
		}
		c.Set(signal.ClientTokenKey, token)
		c.Next()
	}
}

// AdminAuth compares the shared secret in constant time. An empty configured
// secret disables the admin surface.
func AdminAuth(secret string) gin.HandlerFunc {
	want := []byte(secret)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(adminSecretHeader))
		if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			log.Warn().Str("module", "adapters.http").Str("ip", c.ClientIP()).Str("path", c.FullPath()).Msg("admin auth failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrUnauthorized.Error()})
			return
		}
		c.Next()
	}
}
