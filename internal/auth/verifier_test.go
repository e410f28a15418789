package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/radio-control/chanhop/internal/config"
)

const testSecret = "test-secret-key"

func signHS256(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

// writeTestKey writes the public half of a fresh RSA key and returns the
// private key and the file path.
func writeTestKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	path := filepath.Join(t.TempDir(), "pub.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return key, path
}

func controllerClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "admin-456",
		"roles": []string{RoleController},
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

func TestNewVerifier(t *testing.T) {
	_, keyPath := writeTestKey(t)

	tests := []struct {
		name    string
		cfg     config.AuthConfig
		wantErr bool
	}{
		{name: "secret", cfg: config.AuthConfig{HMACSecret: testSecret}},
		{name: "public key", cfg: config.AuthConfig{PublicKeyFile: keyPath}},
		{name: "both", cfg: config.AuthConfig{HMACSecret: testSecret, PublicKeyFile: keyPath}},
		{name: "nothing", cfg: config.AuthConfig{}, wantErr: true},
		{name: "missing key file", cfg: config.AuthConfig{PublicKeyFile: filepath.Join(t.TempDir(), "none.pem")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVerifier(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewVerifier() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVerifyHS256(t *testing.T) {
	v, err := NewVerifier(config.AuthConfig{HMACSecret: testSecret})
	if err != nil {
		t.Fatal(err)
	}

	claims, err := v.VerifyToken(signHS256(t, controllerClaims()))
	if err != nil {
		t.Fatalf("VerifyToken() error = %v", err)
	}
	if claims.Subject != "admin-456" {
		t.Errorf("Subject = %q", claims.Subject)
	}
	if !claims.HasAnyRole(RoleController) {
		t.Errorf("Roles = %v", claims.Roles)
	}
}

func TestVerifyRS256(t *testing.T) {
	key, keyPath := writeTestKey(t)
	v, err := NewVerifier(config.AuthConfig{PublicKeyFile: keyPath})
	if err != nil {
		t.Fatal(err)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, controllerClaims()).SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.VerifyToken(token); err != nil {
		t.Fatalf("VerifyToken() error = %v", err)
	}

	// HS256 is not accepted without a secret.
	if _, err := v.VerifyToken(signHS256(t, controllerClaims())); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("HS256 token error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejects(t *testing.T) {
	v, err := NewVerifier(config.AuthConfig{HMACSecret: testSecret})
	if err != nil {
		t.Fatal(err)
	}

	expired := controllerClaims()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	noSubject := controllerClaims()
	delete(noSubject, "sub")
	badRole := controllerClaims()
	badRole["roles"] = []string{"root"}
	noRoles := controllerClaims()
	delete(noRoles, "roles")

	wrongKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, controllerClaims()).SignedString([]byte("other"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: " "},
		{name: "garbage", token: "not.a.jwt"},
		{name: "wrong key", token: wrongKey},
		{name: "expired", token: signHS256(t, expired)},
		{name: "no subject", token: signHS256(t, noSubject)},
		{name: "unknown role", token: signHS256(t, badRole)},
		{name: "no roles", token: signHS256(t, noRoles)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.VerifyToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("VerifyToken() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestRolesAsSpaceSeparatedString(t *testing.T) {
	v, err := NewVerifier(config.AuthConfig{HMACSecret: testSecret})
	if err != nil {
		t.Fatal(err)
	}
	c := controllerClaims()
	c["roles"] = "viewer controller"

	claims, err := v.VerifyToken(signHS256(t, c))
	if err != nil {
		t.Fatalf("VerifyToken() error = %v", err)
	}
	if len(claims.Roles) != 2 {
		t.Errorf("Roles = %v", claims.Roles)
	}
}
