package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MerchantClaims identify the merchant calling the session creation API.
type MerchantClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

const scopeCheckoutWrite = "checkout:write"

// MerchantAuth verifies HS256 bearer tokens minted with the shared merchant secret.
type MerchantAuth struct {
	secret []byte
	now    func() time.Time
}

// NewMerchantAuth returns nil for an empty secret, which disables auth.
func NewMerchantAuth(secret string) *MerchantAuth {
	if secret == "" {
		return nil
	}
	return &MerchantAuth{secret: []byte(secret), now: time.Now}
}

// Mint issues a token for merchantID valid for ttl.
func (a *MerchantAuth) Mint(merchantID string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := MerchantClaims{
		Scope: scopeCheckoutWrite,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   merchantID,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *MerchantAuth) ParseFromRequest(r *http.Request) (*MerchantClaims, error) {
	hdr := r.Header.Get("Authorization")
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return nil, errors.New("missing token")
	}
	return a.parse(strings.TrimSpace(hdr[7:]))
}

func (a *MerchantAuth) parse(tok string) (*MerchantClaims, error) {
	claims := &MerchantClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Scope != scopeCheckoutWrite {
		return nil, errors.New("token lacks checkout scope")
	}
	return claims, nil
}

// Require rejects requests without a valid merchant token. A nil receiver
// lets every request through.
func (a *MerchantAuth) Require(next http.Handler) http.Handler {
	if a == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := a.ParseFromRequest(r); err != nil {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "Missing or invalid merchant token", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
