package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/brandintel/internal/handler"
)

// HeaderWebhookSecret carries the shared secret configured on vendor webhooks.
const HeaderWebhookSecret = "X-Webhook-Secret"

// WebhookSecret rejects callbacks whose secret header does not match.
// An empty secret disables the check.
func WebhookSecret(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return next(c)
			}
			got := c.Request().Header.Get(HeaderWebhookSecret)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				return handler.Error(c, http.StatusUnauthorized, "invalid webhook secret")
			}
			return next(c)
		}
	}
}
