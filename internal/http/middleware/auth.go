// README: Auth middleware: storefront HMAC signature and the bot-token webhook path.
package middleware

import (
	"bytes"
	"crypto/subtle"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"dishbee/internal/ingress"
)

const rawBodyKey = "raw_body"

// MaxBody bounds every webhook body read by the auth middleware.
const MaxBody = 1 << 20

// Signature rejects storefront requests whose body does not match the
// X-Signature-Sha256 header. The verified body is kept for the handler.
func Signature(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxBody))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}
		if err := ingress.VerifySignature(secret, body, c.GetHeader(ingress.SignatureHeader)); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
		c.Set(rawBodyKey, body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

// RawBody returns the body verified by Signature.
func RawBody(c *gin.Context) []byte {
	if v, ok := c.Get(rawBodyKey); ok {
		if b, ok := v.([]byte); ok {
			return b
		}
	}
	return nil
}

// BotToken only lets chat updates through on the secret path /<token>.
func BotToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.Param("token")
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.Next()
	}
}
