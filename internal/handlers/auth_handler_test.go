package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/middleware"
	"spendwise/internal/models"
	"spendwise/internal/pagination"
	"spendwise/internal/permissions"
	"spendwise/internal/services"
	"spendwise/internal/validator"
)

const (
	testUserID     = "0190a4c5-0000-7000-8000-000000000001"
	testOtherID    = "0190a4c5-0000-7000-8000-000000000002"
	testCategoryID = "0190a4c5-0000-7000-8000-0000000000c1"
	testEntityID   = "0190a4c5-0000-7000-8000-0000000000e1"
)

// --- mock services ---

type mockUserService struct {
	registerFn              func(input services.RegisterInput) (*models.User, error)
	attemptLoginFn          func(email, password string) (*models.User, error)
	getUserByIDFn           func(actor permissions.Actor, id string) (*models.User, error)
	listUsersFn             func(actor permissions.Actor, page pagination.PageRequest) (*pagination.PageResponse[models.User], error)
	createUserFn            func(actor permissions.Actor, input services.CreateUserInput) (*models.User, error)
	updateUserFn            func(actor permissions.Actor, id string, input services.UpdateUserInput) (*models.User, error)
	deactivateUserFn        func(actor permissions.Actor, id string) error
	storeRefreshTokenHashFn func(userID, tokenHash string) error
	getRefreshTokenHashFn   func(userID string) (string, error)
}

func (m *mockUserService) Register(_ context.Context, input services.RegisterInput) (*models.User, error) {
	if m.registerFn != nil {
		return m.registerFn(input)
	}
	return &models.User{}, nil
}

func (m *mockUserService) AttemptLogin(_ context.Context, email, password string) (*models.User, error) {
	if m.attemptLoginFn != nil {
		return m.attemptLoginFn(email, password)
	}
	return &models.User{}, nil
}

func (m *mockUserService) GetUserByID(_ context.Context, actor permissions.Actor, id string) (*models.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(actor, id)
	}
	return &models.User{Base: models.Base{ID: id}, IsActive: true}, nil
}

func (m *mockUserService) ListUsers(_ context.Context, actor permissions.Actor, page pagination.PageRequest) (*pagination.PageResponse[models.User], error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(actor, page)
	}
	resp := pagination.NewPageResponse([]models.User{}, page.Page, page.PageSize, 0)
	return &resp, nil
}

func (m *mockUserService) CreateUser(_ context.Context, actor permissions.Actor, input services.CreateUserInput) (*models.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(actor, input)
	}
	return &models.User{}, nil
}

func (m *mockUserService) UpdateUser(_ context.Context, actor permissions.Actor, id string, input services.UpdateUserInput) (*models.User, error) {
	if m.updateUserFn != nil {
		return m.updateUserFn(actor, id, input)
	}
	return &models.User{}, nil
}

func (m *mockUserService) DeactivateUser(_ context.Context, actor permissions.Actor, id string) error {
	if m.deactivateUserFn != nil {
		return m.deactivateUserFn(actor, id)
	}
	return nil
}

func (m *mockUserService) EnsureAdmin(context.Context, string, string, string) (*models.User, error) {
	return nil, nil
}

func (m *mockUserService) StoreRefreshTokenHash(_ context.Context, userID, tokenHash string) error {
	if m.storeRefreshTokenHashFn != nil {
		return m.storeRefreshTokenHashFn(userID, tokenHash)
	}
	return nil
}

func (m *mockUserService) GetRefreshTokenHash(_ context.Context, userID string) (string, error) {
	if m.getRefreshTokenHashFn != nil {
		return m.getRefreshTokenHashFn(userID)
	}
	return "", nil
}

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func testTokens() *middleware.TokenManager {
	return middleware.NewTokenManager("handler-test-secret", 15*time.Minute, time.Hour)
}

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	r := gin.New()
	r.POST("/auth/register", handler.Register)
	r.POST("/auth/login", handler.Login)
	r.POST("/auth/refresh", handler.Refresh)
	r.GET("/profile", injectActor(testUserID, models.RoleUser), handler.GetProfile)
	return r
}

func injectActor(userID string, role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextRole, role)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]any, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

// --- tests ---

func TestAuthHandler_Register(t *testing.T) {
	t.Run("returns 201 with tokens on success", func(t *testing.T) {
		var stored string
		userSvc := &mockUserService{
			registerFn: func(input services.RegisterInput) (*models.User, error) {
				return &models.User{
					Base:     models.Base{ID: testUserID},
					Email:    input.Email,
					Name:     input.Name,
					Role:     models.RoleUser,
					IsActive: true,
				}, nil
			},
			storeRefreshTokenHashFn: func(_, hash string) error {
				stored = hash
				return nil
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, testTokens()))

		rec := doRequest(r, "POST", "/auth/register",
			`{"email":"test@example.com","password":"password123","name":"Jane Doe"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["access_token"] == nil || result["access_token"] == "" {
			t.Error("expected non-empty access_token")
		}
		refresh, _ := result["refresh_token"].(string)
		if refresh == "" {
			t.Fatal("expected non-empty refresh_token")
		}
		if stored != middleware.HashToken(refresh) {
			t.Error("stored hash does not match the issued refresh token")
		}
		if result["expires_in"] != float64(900) {
			t.Errorf("expected expires_in 900, got %v", result["expires_in"])
		}
		user := result["user"].(map[string]any)
		if user["email"] != "test@example.com" {
			t.Errorf("expected email test@example.com, got %v", user["email"])
		}
		if _, leaked := user["password"]; leaked {
			t.Error("password must not be serialized")
		}
	})

	t.Run("returns 400 on missing email", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(&mockUserService{}, testTokens()))

		rec := doRequest(r, "POST", "/auth/register", `{"password":"password123","name":"Jane"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on short password", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(&mockUserService{}, testTokens()))

		rec := doRequest(r, "POST", "/auth/register", `{"email":"test@example.com","password":"short","name":"Jane"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 409 on duplicate email", func(t *testing.T) {
		userSvc := &mockUserService{
			registerFn: func(services.RegisterInput) (*models.User, error) {
				return nil, apperrors.ErrDuplicateEmail
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, testTokens()))

		rec := doRequest(r, "POST", "/auth/register", `{"email":"dup@example.com","password":"password123","name":"Jane"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "DUPLICATE_EMAIL")
	})

	t.Run("returns 500 when token storage fails", func(t *testing.T) {
		userSvc := &mockUserService{
			registerFn: func(input services.RegisterInput) (*models.User, error) {
				return &models.User{Base: models.Base{ID: testUserID}, Email: input.Email}, nil
			},
			storeRefreshTokenHashFn: func(_, _ string) error {
				return fmt.Errorf("db connection lost")
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, testTokens()))

		rec := doRequest(r, "POST", "/auth/register", `{"email":"test@example.com","password":"password123","name":"Jane"}`)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INTERNAL_ERROR")
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("returns 200 with tokens on success", func(t *testing.T) {
		userSvc := &mockUserService{
			attemptLoginFn: func(email, password string) (*models.User, error) {
				if email != "test@example.com" || password != "password123" {
					t.Errorf("unexpected credentials %q / %q", email, password)
				}
				return &models.User{Base: models.Base{ID: testUserID}, Email: email, Role: models.RoleAccountant}, nil
			},
		}
		tokens := testTokens()
		r := setupAuthRouter(NewAuthHandler(userSvc, tokens))

		rec := doRequest(r, "POST", "/auth/login", `{"email":"test@example.com","password":"password123"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		access, _ := parseJSON(t, rec)["access_token"].(string)
		claims, err := tokens.ValidateAccessToken(access)
		if err != nil {
			t.Fatalf("issued access token invalid: %v", err)
		}
		if claims.UserID != testUserID || claims.Role != models.RoleAccountant {
			t.Errorf("unexpected claims %+v", claims)
		}
	})

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"returns 401 on invalid credentials", apperrors.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"returns 423 when locked", apperrors.ErrAccountLocked, http.StatusLocked, "ACCOUNT_LOCKED"},
		{"returns 403 when disabled", apperrors.ErrAccountDisabled, http.StatusForbidden, "ACCOUNT_DISABLED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userSvc := &mockUserService{
				attemptLoginFn: func(_, _ string) (*models.User, error) { return nil, tt.err },
			}
			r := setupAuthRouter(NewAuthHandler(userSvc, testTokens()))

			rec := doRequest(r, "POST", "/auth/login", `{"email":"test@example.com","password":"wrong"}`)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			assertErrorCode(t, parseJSON(t, rec), tt.wantCode)
		})
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	tokens := testTokens()
	user := &models.User{Base: models.Base{ID: testUserID}, Email: "test@example.com", Role: models.RoleUser, IsActive: true}
	refresh, err := tokens.GenerateRefreshToken(user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	access, _ := tokens.GenerateAccessToken(user)

	newService := func(storedHash string, active bool) *mockUserService {
		return &mockUserService{
			getRefreshTokenHashFn: func(string) (string, error) { return storedHash, nil },
			getUserByIDFn: func(actor permissions.Actor, id string) (*models.User, error) {
				if actor.UserID != id {
					t.Errorf("expected a self lookup, got actor %s for %s", actor.UserID, id)
				}
				u := *user
				u.IsActive = active
				return &u, nil
			},
		}
	}

	t.Run("returns 200 with new tokens", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(newService(middleware.HashToken(refresh), true), tokens))

		rec := doRequest(r, "POST", "/auth/refresh", `{"refresh_token":"`+refresh+`"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if parseJSON(t, rec)["access_token"] == "" {
			t.Error("expected a new access token")
		}
	})

	t.Run("returns 401 when the token was rotated out", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(newService(middleware.HashToken("older-token"), true), tokens))

		rec := doRequest(r, "POST", "/auth/refresh", `{"refresh_token":"`+refresh+`"}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "UNAUTHORIZED")
	})

	t.Run("returns 401 for an access token", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(newService(middleware.HashToken(access), true), tokens))

		rec := doRequest(r, "POST", "/auth/refresh", `{"refresh_token":"`+access+`"}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("returns 403 for a deactivated user", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(newService(middleware.HashToken(refresh), false), tokens))

		rec := doRequest(r, "POST", "/auth/refresh", `{"refresh_token":"`+refresh+`"}`)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "ACCOUNT_DISABLED")
	})
}

func TestAuthHandler_GetProfile(t *testing.T) {
	t.Run("returns the caller's profile", func(t *testing.T) {
		userSvc := &mockUserService{
			getUserByIDFn: func(actor permissions.Actor, id string) (*models.User, error) {
				if actor.UserID != testUserID || id != testUserID {
					t.Errorf("unexpected lookup %s by %s", id, actor.UserID)
				}
				return &models.User{Base: models.Base{ID: id}, Email: "me@example.com"}, nil
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, testTokens()))

		rec := doRequest(r, "GET", "/profile", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		user := parseJSON(t, rec)["user"].(map[string]any)
		if user["email"] != "me@example.com" {
			t.Errorf("unexpected user %v", user)
		}
	})

	t.Run("returns 401 without an actor", func(t *testing.T) {
		r := gin.New()
		r.GET("/profile", NewAuthHandler(&mockUserService{}, testTokens()).GetProfile)

		rec := doRequest(r, "GET", "/profile", "")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}
