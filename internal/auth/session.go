// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jason-s-yu/cardmage/internal/models"
)

// ErrInvalidToken covers every reason a session token is refused.
var ErrInvalidToken = errors.New("invalid session token")

// TokenIssuer signs and verifies EdDSA session tokens. A token lets a client
// reconnect without sending its password again.
type TokenIssuer struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
	// expire of zero issues tokens without an exp claim.
	expire time.Duration
	now    func() time.Time
}

// NewTokenIssuer generates a fresh key pair. Tokens do not survive a restart.
func NewTokenIssuer(expire time.Duration) (*TokenIssuer, error) {
	public, private, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &TokenIssuer{private: private, public: public, expire: expire, now: time.Now}, nil
}

// Issue returns a token carrying the identity's id and name.
func (ti *TokenIssuer) Issue(id models.Identity) (string, error) {
	claims := jwt.MapClaims{
		"sub":  strconv.Itoa(int(id.ID)),
		"name": id.Name,
		"iat":  ti.now().Unix(),
	}
	if ti.expire > 0 {
		claims["exp"] = ti.now().Add(ti.expire).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(ti.private)
}

// Verify checks the signature and expiry and returns the identity the token
// was issued for. Decks are not part of the token.
func (ti *TokenIssuer) Verify(tokenString string) (models.Identity, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ti.public, nil
	}, jwt.WithTimeFunc(ti.now))
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok || !t.Valid {
		return models.Identity{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	id, err := strconv.Atoi(sub)
	if err != nil || id <= 0 {
		return models.Identity{}, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, sub)
	}
	name, _ := claims["name"].(string)
	return models.Identity{ID: int32(id), Name: name}, nil
}
