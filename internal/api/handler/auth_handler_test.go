package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tasktracker/task-system/internal/api/middleware"
	"github.com/tasktracker/task-system/internal/core/domain"
	"github.com/tasktracker/task-system/internal/core/ports"
)

type stubAuthService struct {
	registerFn     func(ctx context.Context, username, password string) (*domain.User, error)
	authenticateFn func(ctx context.Context, username, password string) (*ports.LoginResult, error)
	listUsersFn    func(ctx context.Context) ([]domain.UserSummary, error)
}

func (s *stubAuthService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	return s.registerFn(ctx, username, password)
}

func (s *stubAuthService) Authenticate(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	return s.authenticateFn(ctx, username, password)
}

func (s *stubAuthService) ListUsers(ctx context.Context) ([]domain.UserSummary, error) {
	return s.listUsersFn(ctx)
}

// newJSONContext builds an echo context with the validator installed and,
// when p is non-nil, an authenticated principal.
func newJSONContext(method, target, body string, p *domain.Principal) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if p != nil {
		c.Set(middleware.PrincipalKey, p)
	}
	return c, rec
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, username, password string) (*domain.User, error) {
			if username != "alice" || password != "secret1" {
				t.Fatalf("unexpected args: %s %s", username, password)
			}
			return &domain.User{ID: 7, Username: username, PasswordHash: "hash", Role: domain.RoleUser}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := newJSONContext(http.MethodPost, "/api/auth/register", `{"username":"alice","password":"secret1","role":"admin"}`, nil)
	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["username"] != "alice" || resp["role"] != "user" || resp["id"] != float64(7) {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if strings.Contains(rec.Body.String(), "hash") {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}
}

func TestAuthHandler_Register_Errors(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  error
		want error
	}{
		{"duplicate", `{"username":"bob","password":"secret1"}`, domain.ErrDuplicateUsername, domain.ErrDuplicateUsername},
		{"short password", `{"username":"bob","password":"123"}`, nil, domain.ErrValidation},
		{"missing username", `{"password":"secret1"}`, nil, domain.ErrValidation},
		{"malformed json", `{"username":`, nil, domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubAuthService{
				registerFn: func(ctx context.Context, username, password string) (*domain.User, error) {
					if tc.err == nil {
						t.Fatalf("service must not be called")
					}
					return nil, tc.err
				},
			}
			c, _ := newJSONContext(http.MethodPost, "/api/auth/register", tc.body, nil)
			if err := NewAuthHandler(stub).Register(c); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	stub := &stubAuthService{
		authenticateFn: func(ctx context.Context, username, password string) (*ports.LoginResult, error) {
			return &ports.LoginResult{
				Token:     "signed.jwt.token",
				ExpiresAt: expires,
				User:      &domain.User{ID: 1, Username: username, Role: domain.RoleAdmin},
			}, nil
		},
	}

	c, rec := newJSONContext(http.MethodPost, "/api/auth/login", `{"username":"carol","password":"s3cret"}`, nil)
	if err := NewAuthHandler(stub).Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Token != "signed.jwt.token" || !resp.ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected token payload: %+v", resp)
	}
	if resp.User.Username != "carol" || resp.User.Role != "admin" {
		t.Fatalf("unexpected user payload: %+v", resp.User)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubAuthService{
		authenticateFn: func(ctx context.Context, username, password string) (*ports.LoginResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}

	c, _ := newJSONContext(http.MethodPost, "/api/auth/login", `{"username":"dave","password":"bad"}`, nil)
	if err := NewAuthHandler(stub).Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Users(t *testing.T) {
	stub := &stubAuthService{
		listUsersFn: func(ctx context.Context) ([]domain.UserSummary, error) {
			return []domain.UserSummary{{ID: 1, Username: "admin"}, {ID: 2, Username: "testuser"}}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, _ := newJSONContext(http.MethodGet, "/api/auth/users", "", nil)
	if err := handler.Users(c); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated without principal, got %v", err)
	}

	c, rec := newJSONContext(http.MethodGet, "/api/auth/users", "", &domain.Principal{UserID: 2, Username: "testuser", Role: domain.RoleUser})
	if err := handler.Users(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var users []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(users) != 2 || users[1]["username"] != "testuser" {
		t.Fatalf("unexpected users: %+v", users)
	}
	for _, u := range users {
		if len(u) != 2 {
			t.Fatalf("user directory must expose only id and username, got %+v", u)
		}
	}
}

func TestAuthHandler_Me(t *testing.T) {
	c, rec := newJSONContext(http.MethodGet, "/api/auth/me", "", &domain.Principal{UserID: 9, Username: "zoe", Role: domain.RoleAdmin})
	if err := NewAuthHandler(&stubAuthService{}).Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.ID != 9 || resp.Username != "zoe" || resp.Role != "admin" {
		t.Fatalf("unexpected payload %+v", resp)
	}
}
