package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/radio-control/chanhop/internal/config"
)

func newTestMiddleware(t *testing.T) *Middleware {
	t.Helper()
	v, err := NewVerifier(config.AuthConfig{HMACSecret: testSecret})
	if err != nil {
		t.Fatal(err)
	}
	return NewMiddleware(v)
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(Subject(r)))
}

func TestRequireAuth(t *testing.T) {
	m := newTestMiddleware(t)
	viewer := controllerClaims()
	viewer["sub"] = "user-123"
	viewer["roles"] = []string{RoleViewer}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "no header", wantStatus: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic dXNlcjpwdw==", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer invalid-token", wantStatus: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer " + signHS256(t, viewer), wantStatus: http.StatusOK, wantBody: "user-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/channel", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			m.RequireAuth(okHandler)(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				var body map[string]interface{}
				if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
					t.Fatalf("decode error body: %v", err)
				}
				if body["code"] != "UNAUTHORIZED" {
					t.Errorf("code = %v", body["code"])
				}
				return
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	m := newTestMiddleware(t)
	handler := m.RequireAuth(m.RequireRole(RoleController)(okHandler))

	tests := []struct {
		name       string
		roles      []string
		wantStatus int
	}{
		{name: "viewer", roles: []string{RoleViewer}, wantStatus: http.StatusForbidden},
		{name: "controller", roles: []string{RoleController}, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := jwt.MapClaims{"sub": "u", "roles": tt.roles}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/channel", nil)
			req.Header.Set("Authorization", "Bearer "+signHS256(t, c))
			w := httptest.NewRecorder()

			handler(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestControllerIsViewer(t *testing.T) {
	c := &Claims{Subject: "u", Roles: []string{RoleController}}
	if !c.HasAnyRole(RoleViewer) {
		t.Error("controller should pass viewer checks")
	}
	v := &Claims{Subject: "u", Roles: []string{RoleViewer}}
	if v.HasAnyRole(RoleController) {
		t.Error("viewer must not pass controller checks")
	}
}

func TestDisabledAuth(t *testing.T) {
	m := NewMiddleware(nil)
	handler := m.RequireAuth(m.RequireRole(RoleController)(okHandler))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/hop", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != Anonymous {
		t.Errorf("subject = %q, want %q", w.Body.String(), Anonymous)
	}
}

func TestSubjectWithoutClaims(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := Subject(req); got != Anonymous {
		t.Errorf("Subject() = %q", got)
	}
}
