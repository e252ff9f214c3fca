package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"registrar/internal/model"
)

var (
	ErrMissingSecret = errors.New("token signing secret is not configured")
	ErrInvalidToken  = errors.New("token is invalid or expired")
)

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AdminID is the administrator id carried in the subject claim.
func (c *Claims) AdminID() string {
	return c.Subject
}

type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (s *TokenService) Issue(admin model.Administrator) (string, error) {
	now := s.now().UTC()
	claims := Claims{
		Username: admin.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
// The header is split on single spaces: the token is the second piece and
// anything after it is ignored. Any other scheme, or an empty second piece, yields "".
func BearerToken(header string) string {
	parts := strings.Split(header, " ")
	if len(parts) < 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
