// Package auth issues and validates bearer tokens for the local owner.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Subject is the only principal: whoever knows the passcode owns the data.
const Subject = "owner"

// TokenExpiry is the default token lifetime.
const TokenExpiry = 30 * 24 * time.Hour

// ErrWrongPasscode is returned by CheckPasscode on a mismatch.
var ErrWrongPasscode = errors.New("auth: wrong passcode")

// Claims are the JWT claims of an owner session.
type Claims struct {
	jwt.RegisteredClaims
}

// IssueToken signs a new owner token with a random JTI.
func IssueToken(secret string, now time.Time) (string, *Claims, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", nil, fmt.Errorf("signing token: %w", err)
	}
	return signed, claims, nil
}

// ValidateToken parses and validates an owner token.
func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithSubject(Subject))
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("token has no id")
	}
	return claims, nil
}

// HashPasscode returns the bcrypt hash stored at init.
func HashPasscode(passcode string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing passcode: %w", err)
	}
	return string(hash), nil
}

// CheckPasscode compares a passcode against its stored hash.
func CheckPasscode(hash, passcode string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(passcode))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrWrongPasscode
	}
	if err != nil {
		return fmt.Errorf("checking passcode: %w", err)
	}
	return nil
}
