// Package auth provides JWT token generation and validation.
//
// ────────────────────────────────────────────────────────────────────
// LEARNING NOTE: what is a JWT?
// ────────────────────────────────────────────────────────────────────
// A JSON Web Token (JWT) has three Base64-encoded sections:
//
//	HEADER.PAYLOAD.SIGNATURE
//
// The SIGNATURE is an HMAC-SHA256 of HEADER+PAYLOAD using a secret only
// the server knows, so the server can trust the claims without a
// database lookup on every request.
//
// Two kinds of tokens are issued here: session tokens carrying the
// user's id and role, and checkout confirmation tokens that the payment
// provider hands back once a challenge's prize pool is escrowed.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims embedded in each session token.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// tokenDuration is how long a session token stays valid after being issued.
const tokenDuration = 72 * time.Hour

// CheckoutTokenDuration bounds how long a checkout confirmation may be
// redeemed after the provider signs it.
const CheckoutTokenDuration = 24 * time.Hour

// checkoutAudience separates confirmation tokens from session tokens signed
// with the same secret.
const checkoutAudience = "checkout"

// CheckoutClaims confirm that a challenge's prize pool was paid.
type CheckoutClaims struct {
	ChallengeID string `json:"challenge_id"`
	// Amount is the escrowed total in minor currency units.
	Amount int64 `json:"amount"`
	jwt.RegisteredClaims
}

func keyFunc(secret string) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		// Guard against "alg:none" or RS256 tokens being passed to an HS256 server.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}
}

// GenerateToken creates a signed session JWT for the given user.
func GenerateToken(userID, role, secret string) (string, error) {
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a session JWT and returns the embedded claims.
// It rejects tokens with a wrong signature, an expired exp, an unexpected
// algorithm, or a checkout audience.
func ParseToken(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, keyFunc(secret))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	for _, aud := range claims.Audience {
		if aud == checkoutAudience {
			return nil, errors.New("checkout token used as session token")
		}
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no user")
	}
	return claims, nil
}

// GenerateCheckoutToken signs a confirmation that amount was escrowed for
// challengeID. issuedAt is explicit so tests can produce expired tokens.
func GenerateCheckoutToken(challengeID string, amount int64, secret string, issuedAt time.Time) (string, error) {
	claims := CheckoutClaims{
		ChallengeID: challengeID,
		Amount:      amount,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{checkoutAudience},
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(CheckoutTokenDuration)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign checkout token: %w", err)
	}
	return signed, nil
}

// ParseCheckoutToken verifies signature, expiry and audience of a checkout
// confirmation.
func ParseCheckoutToken(tokenStr, secret string) (*CheckoutClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &CheckoutClaims{}, keyFunc(secret),
		jwt.WithAudience(checkoutAudience))
	if err != nil {
		return nil, fmt.Errorf("parse checkout token: %w", err)
	}
	claims, ok := token.Claims.(*CheckoutClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid checkout token")
	}
	if claims.ChallengeID == "" {
		return nil, errors.New("checkout token has no challenge")
	}
	return claims, nil
}
