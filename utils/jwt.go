package utils

import (
	"errors"
	"time"

	"replyloop/config"

	"github.com/golang-jwt/jwt/v5"
)

type APIClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// GenerateAPIToken mints a bearer token for the control surface. Token
// lifetime is the caller's choice; zero means no expiry.
func GenerateAPIToken(name string, ttl time.Duration) (string, error) {
	claims := &APIClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.APITokenSecret))
}

func ParseAPIToken(tokenString string) (*APIClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &APIClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.AppConfig.APITokenSecret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*APIClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
