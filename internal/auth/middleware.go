package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/Dan9191/ledger-monitor/internal/models"
	"github.com/sirupsen/logrus"
)

type contextKey struct{}

// WithClaims stores the verified identity in ctx
func WithClaims(ctx context.Context, c *models.Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// ClaimsFrom returns the identity stored by the middleware
func ClaimsFrom(ctx context.Context) (*models.Claims, bool) {
	c, ok := ctx.Value(contextKey{}).(*models.Claims)
	return c, ok && c != nil
}

// Middleware rejects requests without a valid bearer token
func Middleware(issuer *Issuer, log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				http.Error(w, "Authentication token is required", http.StatusUnauthorized)
				return
			}
			c, err := issuer.Verify(token)
			if err != nil {
				log.WithError(err).Warn("Access denied")
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}
			log.WithFields(logrus.Fields{"user_id": c.UserID, "company_id": c.CompanyID}).Debug("Access granted")
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), c)))
		})
	}
}
