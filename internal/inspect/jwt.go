package inspect

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenReport summarizes the identity and time claims of a JWT. The
// signature is deliberately not verified; this is local analysis of a token
// we already hold, not authentication.
type TokenReport struct {
	Subject   string
	Issuer    string
	IssuedAt  *time.Time
	ExpiresAt *time.Time
	Age       time.Duration
	Remaining time.Duration
	Expired   bool
}

// AnalyzeToken decodes a JWT's claims and reports its lifetime relative to
// now.
func AnalyzeToken(token string, now time.Time) (*TokenReport, error) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	report := &TokenReport{}
	if sub, err := claims.GetSubject(); err == nil {
		report.Subject = sub
	}
	if iss, err := claims.GetIssuer(); err == nil {
		report.Issuer = iss
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		issuedAt := iat.Time
		report.IssuedAt = &issuedAt
		report.Age = now.Sub(issuedAt)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt := exp.Time
		report.ExpiresAt = &expiresAt
		report.Remaining = expiresAt.Sub(now)
		report.Expired = expiresAt.Before(now)
	}
	return report, nil
}
