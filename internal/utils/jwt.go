package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens
)

// Principal realms. The realm claim is the discriminant that lets one
// verification path serve both customer and admin tokens.
const (
	RealmUser  = "user"
	RealmAdmin = "admin"
)

// Issuer and audience claims applied to every token in both realms.
const (
	TokenIssuer   = "sweet-shop-api"
	TokenAudience = "sweet-shop-client"
)

// refreshType marks refresh tokens so an access token can never be replayed
// against the refresh endpoint.
const refreshType = "refresh"

// Token verification errors. Expiry is distinguished from every other
// failure so clients can attempt one refresh-and-retry cycle.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims carries the verified identity extracted from a token.
type Claims struct {
	Subject string // principal id, hex-encoded ObjectID
	Realm   string // "user" or "admin"
	Role    string // admin role for the admin realm, "user" otherwise
}

// AccessToken is a signed short-lived JWT along with its expiry.
type AccessToken struct {
	Token string    `json:"token"`
	Exp   time.Time `json:"expires"`
}

// RefreshToken is a signed long-lived JWT along with its expiry. The raw
// string is also stored on the principal document to allow revocation.
type RefreshToken struct {
	Token string    `json:"token"`
	Exp   time.Time `json:"expires"`
}

// NewAccessToken builds and signs an HS256 access JWT embedding the
// principal id, realm and role.
func NewAccessToken(secret, subject, realm, role string, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":   subject,
		"realm": realm,
		"role":  role,
		"iss":   TokenIssuer,
		"aud":   TokenAudience,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken builds and signs an HS256 refresh JWT. It is signed with
// the dedicated refresh secret and carries a type marker. The jti nonce
// makes every token unique: timestamps have second granularity, and two
// identical token strings would break rotation and per-session revocation,
// since the stored list matches by value.
func NewRefreshToken(secret, subject, realm string, ttlDays int) (RefreshToken, error) {
	jti, err := nonce()
	if err != nil {
		return RefreshToken{}, err
	}
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlDays) * 24 * time.Hour)
	claims := jwt.MapClaims{
		"sub":   subject,
		"realm": realm,
		"typ":   refreshType,
		"jti":   jti,
		"iss":   TokenIssuer,
		"aud":   TokenAudience,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies an access token and returns its claims. Tokens
// carrying the refresh type marker are rejected.
func ParseAccessToken(secret, raw string) (Claims, error) {
	mc, err := parse(secret, raw)
	if err != nil {
		return Claims{}, err
	}
	if typ, _ := mc["typ"].(string); typ == refreshType {
		return Claims{}, ErrTokenInvalid
	}
	return claimsFrom(mc)
}

// ParseRefreshToken verifies a refresh token and returns its claims. The
// refresh type marker is mandatory.
func ParseRefreshToken(secret, raw string) (Claims, error) {
	mc, err := parse(secret, raw)
	if err != nil {
		return Claims{}, err
	}
	if typ, _ := mc["typ"].(string); typ != refreshType {
		return Claims{}, ErrTokenInvalid
	}
	return claimsFrom(mc)
}

// parse validates the signature, expiry and the issuer/audience pair. The
// same claim validation applies to both realms.
func parse(secret, raw string) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return nil, ErrTokenInvalid
	}
	return mc, nil
}

// nonce returns 16 random bytes hex-encoded.
func nonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func claimsFrom(mc jwt.MapClaims) (Claims, error) {
	sub, _ := mc["sub"].(string)
	realm, _ := mc["realm"].(string)
	role, _ := mc["role"].(string)
	if sub == "" || (realm != RealmUser && realm != RealmAdmin) {
		return Claims{}, ErrTokenInvalid
	}
	return Claims{Subject: sub, Realm: realm, Role: role}, nil
}
