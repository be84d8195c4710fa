package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frahmantamala/academy-portal/internal"
	"github.com/frahmantamala/academy-portal/internal/identity"
)

// Claims carried by the portal access token handed to the browser after
// a successful login.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type TokenGenerator interface {
	Generate(ident identity.Identity) (string, error)
	Validate(tokenString string) (*Claims, error)
}

type JWTTokenGenerator struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTTokenGenerator(secret string, ttl time.Duration) *JWTTokenGenerator {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &JWTTokenGenerator{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (j *JWTTokenGenerator) Generate(ident identity.Identity) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: ident.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(ident.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

func (j *JWTTokenGenerator) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, internal.ErrInvalidToken
	}
	return claims, nil
}
