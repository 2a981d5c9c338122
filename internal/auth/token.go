package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/ledger-monitor/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// claims is the JWT payload carrying the user identity and company scope
type claims struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer initializes a token issuer
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate returns a signed token for the user and company
func (i *Issuer) Generate(userID, companyID string) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:    userID,
		CompanyID: companyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the identity
func (i *Issuer) Verify(tokenString string) (*models.Claims, error) {
	parsed := &claims{}
	_, err := jwt.ParseWithClaims(tokenString, parsed, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", models.ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: %w", models.ErrUnauthorized, err)
	}
	if parsed.UserID == "" || parsed.CompanyID == "" {
		return nil, fmt.Errorf("%w: token missing required fields", models.ErrUnauthorized)
	}
	return &models.Claims{UserID: parsed.UserID, CompanyID: parsed.CompanyID}, nil
}
