package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"spendwise/internal/config"
	"spendwise/internal/logger"
	"spendwise/internal/middleware"
	"spendwise/internal/models"
	"spendwise/internal/testutil"
	"spendwise/internal/validator"
)

const testJobsKey = "jobs-secret"

// testNow is inside March 2024 so fixture budgets for February have ended.
var testNow = time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)

// testApp holds the full application stack for end-to-end tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

func testConfig() *config.Config {
	return &config.Config{
		Env:             "test",
		CORSOrigins:     []string{"*"},
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
		LoginRateLimit:  "1000-M",
		JobsAPIKey:      testJobsKey,
	}
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T, cfg *config.Config) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	r, err := New(cfg, NewServices(db, func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}
	return &testApp{DB: db, Router: r}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body, _ := parseJSON(t, rec)["error"].(map[string]any)
	code, _ := body["code"].(string)
	return code
}

// registerUser registers a new user and returns the access token, refresh token, and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (accessToken, refreshToken, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"name":"Test User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]any)
	return result["access_token"].(string), result["refresh_token"].(string), user["id"].(string)
}

// loginUser logs in and returns the access and refresh tokens.
func (app *testApp) loginUser(t *testing.T, email, password string) (accessToken, refreshToken string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["access_token"].(string), result["refresh_token"].(string)
}

// loginAs creates a fixture user with role and returns an access token for it.
func (app *testApp) loginAs(t *testing.T, role models.Role) (string, *models.User) {
	t.Helper()
	user := testutil.CreateTestUser(t, app.DB, role)
	token, _ := app.loginUser(t, user.Email, testutil.TestPassword)
	return token, user
}

func TestHealth(t *testing.T) {
	app := setupApp(t, testConfig())

	rec := app.request("GET", "/api/health", "", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if parseJSON(t, rec)["status"] != "ok" {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestAuthFlow(t *testing.T) {
	app := setupApp(t, testConfig())

	access, refresh, userID := app.registerUser(t, "jane@example.com", "supersecret")

	t.Run("profile with access token", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/profile", "", access)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		user := parseJSON(t, rec)["user"].(map[string]any)
		if user["id"] != userID || user["role"] != string(models.RoleUser) {
			t.Errorf("unexpected profile %v", user)
		}
	})

	t.Run("profile without token", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/profile", "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("refresh token is rejected as access token", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/profile", "", refresh)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("refresh rotates the token", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, refresh), "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		rotated := parseJSON(t, rec)["refresh_token"].(string)
		if rotated == refresh {
			t.Fatal("expected a new refresh token")
		}

		reused := app.request("POST", "/api/v1/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, refresh), "")
		if reused.Code != http.StatusUnauthorized {
			t.Errorf("expected 401 for a rotated-out token, got %d", reused.Code)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/auth/register", `{"email":"jane@example.com","password":"supersecret","name":"Jane"}`, "")
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		if code := errorCode(t, rec); code != "DUPLICATE_EMAIL" {
			t.Errorf("expected DUPLICATE_EMAIL, got %s", code)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/auth/login", `{"email":"jane@example.com","password":"wrongpass"}`, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if code := errorCode(t, rec); code != "INVALID_CREDENTIALS" {
			t.Errorf("expected INVALID_CREDENTIALS, got %s", code)
		}
	})
}

func TestLoginRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.LoginRateLimit = "2-M"
	app := setupApp(t, cfg)

	body := `{"email":"nobody@example.com","password":"whatever1"}`
	for i := 0; i < 2; i++ {
		if rec := app.request("POST", "/api/v1/auth/login", body, ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, rec.Code)
		}
	}

	rec := app.request("POST", "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "RATE_LIMITED" {
		t.Errorf("expected RATE_LIMITED, got %s", code)
	}
}

func TestExpenseAndBudgetFlow(t *testing.T) {
	app := setupApp(t, testConfig())
	token, user := app.loginAs(t, models.RoleUser)
	category := testutil.CreateTestCategory(t, app.DB)

	rec := app.request("POST", "/api/v1/budgets", fmt.Sprintf(
		`{"category_id":%q,"period":"monthly","amount":500,"start_date":"2024-03-01","end_date":"2024-03-31"}`,
		category.ID), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create budget: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	budgetID := parseJSON(t, rec)["budget"].(map[string]any)["id"].(string)

	for _, amount := range []string{"300", "120.00"} {
		rec := app.request("POST", "/api/v1/expenses", fmt.Sprintf(
			`{"category_id":%q,"amount":%s,"date":"2024-03-10","description":"Groceries","payment_method":"debit_card"}`,
			category.ID, amount), token)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create expense: expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	}

	t.Run("expenses are listed", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/expenses?from_date=2024-03-01&to_date=2024-03-31", "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["total_items"] != float64(2) {
			t.Errorf("expected 2 expenses, got %v", result["total_items"])
		}
		first := result["data"].([]any)[0].(map[string]any)
		if first["user_id"] != user.ID {
			t.Errorf("expected expense owned by %s, got %v", user.ID, first["user_id"])
		}
	})

	t.Run("totals", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/expenses/totals", "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		totals := parseJSON(t, rec)["totals"].(map[string]any)
		if totals["total"] != float64(42000) || totals["count"] != float64(2) {
			t.Errorf("unexpected totals %v", totals)
		}
	})

	t.Run("budget status warns at 84 percent", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/budgets/"+budgetID+"/status", "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		status := parseJSON(t, rec)["status"].(map[string]any)
		if status["spent"] != float64(42000) || status["remaining"] != float64(8000) {
			t.Errorf("unexpected amounts %v / %v", status["spent"], status["remaining"])
		}
		if status["alert_level"] != string(models.AlertWarning) {
			t.Errorf("expected warning, got %v", status["alert_level"])
		}
		if status["spent_display"] != "$420.00" {
			t.Errorf("unexpected display %v", status["spent_display"])
		}
	})

	t.Run("overlapping budget is rejected", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/budgets", fmt.Sprintf(
			`{"category_id":%q,"period":"monthly","amount":100,"start_date":"2024-03-15","end_date":"2024-04-14"}`,
			category.ID), token)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
		}
		if code := errorCode(t, rec); code != "BUDGET_OVERLAP" {
			t.Errorf("expected BUDGET_OVERLAP, got %s", code)
		}
	})

	t.Run("current period cannot roll over", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/budgets/"+budgetID+"/rollover", "", token)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("dashboard", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/analytics/dashboard", "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		dashboard := parseJSON(t, rec)["dashboard"].(map[string]any)
		if dashboard["monthly_spent"] != float64(42000) {
			t.Errorf("unexpected monthly spent %v", dashboard["monthly_spent"])
		}
	})
}

func TestExpenseOwnership(t *testing.T) {
	app := setupApp(t, testConfig())
	ownerToken, owner := app.loginAs(t, models.RoleUser)
	otherToken, _ := app.loginAs(t, models.RoleUser)
	accountantToken, _ := app.loginAs(t, models.RoleAccountant)
	category := testutil.CreateTestCategory(t, app.DB)
	expense := testutil.CreateTestExpense(t, app.DB, owner.ID, category.ID, 2500, testNow.AddDate(0, 0, -1))

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"owner can read", ownerToken, http.StatusOK},
		{"other user is forbidden", otherToken, http.StatusForbidden},
		{"accountant can read", accountantToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.request("GET", "/api/v1/expenses/"+expense.ID, "", tt.token)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}

	t.Run("other user cannot delete", func(t *testing.T) {
		rec := app.request("DELETE", "/api/v1/expenses/"+expense.ID, "", otherToken)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("owner deletes and the audit trail records it", func(t *testing.T) {
		rec := app.request("DELETE", "/api/v1/expenses/"+expense.ID, "", ownerToken)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}

		rec = app.request("GET", "/api/v1/audit/expense/"+expense.ID, "", accountantToken)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		history := parseJSON(t, rec)["history"].([]any)
		if len(history) != 1 || history[0].(map[string]any)["action"] != string(models.AuditDelete) {
			t.Errorf("expected a single delete entry, got %v", history)
		}
	})
}

func TestRoleAccess(t *testing.T) {
	app := setupApp(t, testConfig())
	userToken, _ := app.loginAs(t, models.RoleUser)
	accountantToken, _ := app.loginAs(t, models.RoleAccountant)
	adminToken, _ := app.loginAs(t, models.RoleAdmin)

	category := `{"name":"Travel","color":"#10b981","icon":"plane"}`

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		token      string
		wantStatus int
	}{
		{"user cannot list users", "GET", "/api/v1/users", "", userToken, http.StatusForbidden},
		{"accountant cannot list users", "GET", "/api/v1/users", "", accountantToken, http.StatusForbidden},
		{"admin lists users", "GET", "/api/v1/users", "", adminToken, http.StatusOK},
		{"user cannot read audit", "GET", "/api/v1/audit", "", userToken, http.StatusForbidden},
		{"accountant reads audit", "GET", "/api/v1/audit/stats", "", accountantToken, http.StatusOK},
		{"user cannot create category", "POST", "/api/v1/categories", category, userToken, http.StatusForbidden},
		{"accountant cannot create category", "POST", "/api/v1/categories", category, accountantToken, http.StatusForbidden},
		{"admin creates category", "POST", "/api/v1/categories", category, adminToken, http.StatusCreated},
		{"user lists categories", "GET", "/api/v1/categories", "", userToken, http.StatusOK},
		{"user cannot see inactive categories", "GET", "/api/v1/categories?include_inactive=true", "", userToken, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.request(tt.method, tt.path, tt.body, tt.token)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestDeactivatedUserCannotLogIn(t *testing.T) {
	app := setupApp(t, testConfig())
	adminToken, _ := app.loginAs(t, models.RoleAdmin)
	user := testutil.CreateTestUser(t, app.DB, models.RoleUser)

	rec := app.request("DELETE", "/api/v1/users/"+user.ID, "", adminToken)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	body := fmt.Sprintf(`{"email":%q,"password":%q}`, user.Email, testutil.TestPassword)
	rec = app.request("POST", "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "ACCOUNT_DISABLED" {
		t.Errorf("expected ACCOUNT_DISABLED, got %s", code)
	}
}

func TestJobsRollovers(t *testing.T) {
	t.Run("requires the api key", func(t *testing.T) {
		app := setupApp(t, testConfig())

		rec := app.request("POST", "/internal/jobs/rollovers", "", "")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("disabled without a key", func(t *testing.T) {
		cfg := testConfig()
		cfg.JobsAPIKey = ""
		app := setupApp(t, cfg)

		rec := app.request("POST", "/internal/jobs/rollovers", "", "")

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})

	t.Run("rolls ended budgets", func(t *testing.T) {
		app := setupApp(t, testConfig())
		user := testutil.CreateTestUser(t, app.DB, models.RoleUser)
		category := testutil.CreateTestCategory(t, app.DB)
		february := time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC)
		ended := testutil.CreateTestBudget(t, app.DB, user.ID, category.ID, 10000, february)
		testutil.CreateTestExpense(t, app.DB, user.ID, category.ID, 4000, february)

		req := httptest.NewRequest("POST", "/internal/jobs/rollovers", nil)
		req.Header.Set(middleware.APIKeyHeader, testJobsKey)
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)["result"].(map[string]any)
		if result["rolled"] != float64(1) {
			t.Fatalf("expected 1 rolled budget, got %v", result)
		}

		var old models.Budget
		app.DB.First(&old, "id = ?", ended.ID)
		if old.IsActive {
			t.Error("expected the ended budget to be deactivated")
		}

		var next models.Budget
		if err := app.DB.Where("is_active = ? AND user_id = ?", true, user.ID).First(&next).Error; err != nil {
			t.Fatalf("expected a new active budget: %v", err)
		}
		if next.Amount != 16000 {
			t.Errorf("expected 100.00 + 60.00 surplus, got %d", next.Amount)
		}
		if !next.StartDate.Equal(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected next start %s", next.StartDate)
		}
	})
}

func TestCORSConfig(t *testing.T) {
	t.Run("wildcard allows all origins without credentials", func(t *testing.T) {
		c := corsConfig([]string{"*"})
		if !c.AllowAllOrigins || c.AllowCredentials {
			t.Errorf("unexpected config %+v", c)
		}
	})

	t.Run("listed origins allow credentials", func(t *testing.T) {
		c := corsConfig([]string{"https://app.example.com"})
		if c.AllowAllOrigins || !c.AllowCredentials || len(c.AllowOrigins) != 1 {
			t.Errorf("unexpected config %+v", c)
		}
	})
}

func TestNewRejectsBadRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.LoginRateLimit = "lots"

	if _, err := New(cfg, NewServices(testutil.SetupTestDB(t), time.Now)); err == nil {
		t.Fatal("expected an error for an invalid rate")
	}
}
