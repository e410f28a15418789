package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/radio-control/chanhop/internal/config"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Verifier checks token signatures and extracts claims.
type Verifier struct {
	secret    []byte
	publicKey *rsa.PublicKey
}

// NewVerifier builds a verifier from cfg. A PEM key file enables RS256 and a
// secret enables HS256; both may be set.
func NewVerifier(cfg config.AuthConfig) (*Verifier, error) {
	v := &Verifier{}
	if cfg.HMACSecret != "" {
		v.secret = []byte(cfg.HMACSecret)
	}
	if cfg.PublicKeyFile != "" {
		pemData, err := os.ReadFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read public key: %w", err)
		}
		key, err := jwt.ParseRSAPublicKeyFromPEM(pemData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse public key %s: %w", cfg.PublicKeyFile, err)
		}
		v.publicKey = key
	}
	if v.secret == nil && v.publicKey == nil {
		return nil, errors.New("no verification key configured")
	}
	return v, nil
}

// VerifyToken verifies tokenString and returns its claims.
func (v *Verifier) VerifyToken(tokenString string) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, fmt.Errorf("empty token: %w", ErrInvalidToken)
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, v.keyFor, jwt.WithValidMethods(v.methods()))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return extractClaims(claims)
}

func (v *Verifier) methods() []string {
	var methods []string
	if v.secret != nil {
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	if v.publicKey != nil {
		methods = append(methods, jwt.SigningMethodRS256.Alg())
	}
	return methods
}

func (v *Verifier) keyFor(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		return v.secret, nil
	case *jwt.SigningMethodRSA:
		return v.publicKey, nil
	default:
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
}

func extractClaims(claims jwt.MapClaims) (*Claims, error) {
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("missing 'sub' claim: %w", ErrInvalidToken)
	}

	roles, err := stringSlice(claims, "roles")
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		if role != RoleViewer && role != RoleController {
			return nil, fmt.Errorf("unknown role %q: %w", role, ErrInvalidToken)
		}
	}
	if len(roles) == 0 {
		return nil, fmt.Errorf("no roles: %w", ErrInvalidToken)
	}

	return &Claims{Subject: sub, Roles: roles}, nil
}

func stringSlice(claims jwt.MapClaims, key string) ([]string, error) {
	switch val := claims[key].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.Fields(val), nil
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("invalid %s claim: %w", key, ErrInvalidToken)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("invalid %s claim: %w", key, ErrInvalidToken)
	}
}
