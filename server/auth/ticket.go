package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tankarena/server/domain"
)

var (
	ErrMissingTicket = errors.New("missing join ticket")
	ErrInvalidTicket = errors.New("invalid join ticket")
)

// TicketClaims は参加チケットのクレームです。Name が空なら Subject をプレイヤー名にします。
type TicketClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// HS256Verifier は共有シークレットで署名された参加チケットを検証します。
type HS256Verifier struct {
	secret []byte
	parser *jwt.Parser
}

var _ domain.TicketVerifier = (*HS256Verifier)(nil)

func NewHS256Verifier(secret string) *HS256Verifier {
	return &HS256Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

func (v *HS256Verifier) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrMissingTicket
	}
	var claims TicketClaims
	_, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidTicket, err)
	}
	name := claims.Name
	if name == "" {
		name = claims.Subject
	}
	if name == "" {
		return "", fmt.Errorf("%w: no name or subject claim", ErrInvalidTicket)
	}
	return name, nil
}

// Issue は name の参加チケットを ttl の有効期限付きで発行します。
func (v *HS256Verifier) Issue(name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TicketClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
