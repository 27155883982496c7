package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	jwt.RegisteredClaims
}

// ResetClaims carries a password-reset grant; the purpose claim keeps access
// tokens signed with the same secret from being accepted as reset tokens.
// Stamp is derived from the password hash at issue time, so the grant dies
// once the password changes.
type ResetClaims struct {
	Purpose string `json:"purpose"`
	Stamp   string `json:"stamp"`
	jwt.RegisteredClaims
}

const resetPurpose = "password_reset"

func SignAccess(subject, role string, exp time.Time, secret []byte) (string, error) {
	claims := AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func SignRefresh(subject, jti string, exp time.Time, secret []byte) (string, error) {
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func SignReset(subject, stamp string, exp time.Time, secret []byte) (string, error) {
	claims := ResetClaims{
		Purpose: resetPurpose,
		Stamp:   stamp,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// AccessClaimsFromToken rejects tokens without a role, which covers reset
// tokens signed with the same secret.
func AccessClaimsFromToken(tokenStr string, secret []byte) (*AccessClaims, error) {
	var claims AccessClaims
	if err := parse(tokenStr, &claims, secret); err != nil {
		return nil, err
	}
	if claims.Role == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

func RefreshClaimsFromToken(tokenStr string, secret []byte) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := parse(tokenStr, &claims, secret); err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

func ResetClaimsFromToken(tokenStr string, secret []byte) (*ResetClaims, error) {
	var claims ResetClaims
	if err := parse(tokenStr, &claims, secret); err != nil {
		return nil, err
	}
	if claims.Purpose != resetPurpose || claims.Stamp == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

func parse(tokenStr string, claims jwt.Claims, secret []byte) error {
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	})
	if err != nil {
		return err
	}
	if !tkn.Valid {
		return ErrInvalidToken
	}
	return nil
}

// Pair is a freshly issued access/refresh token couple.
type Pair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}
