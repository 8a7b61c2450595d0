package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"koop-backend/internal/apperr"
	"koop-backend/internal/auth"
	"koop-backend/internal/models"
	"koop-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

type fixture struct {
	db  *gorm.DB
	app *fiber.App
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	c, _ := testutil.Cycle(t, testutil.OrderingTime(t))
	return &fixture{
		db:  db,
		app: New(Deps{DB: db, Cycle: c, Secret: testSecret, CORSOrigins: "*"}),
	}
}

func token(t *testing.T, u models.User) string {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, &u)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return tok
}

func (f *fixture) do(t *testing.T, method, path, tok, body string) (*http.Response, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := f.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	hash, err := auth.HashPassword("tajnehaslo")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	f.db.Create(&models.User{Username: "ala", PasswordHash: hash, Role: models.RoleMember})

	resp, body := f.do(t, http.MethodPost, "/api/auth/login", "", `{"username":"ala","password":"tajnehaslo"}`)
	if tok, _ := body["token"].(string); resp.StatusCode != http.StatusOK || tok == "" {
		t.Fatalf("status = %d body = %v", resp.StatusCode, body)
	}

	resp, _ = f.do(t, http.MethodPost, "/api/auth/login", "", `{"username":"ala","password":"zle"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", resp.StatusCode)
	}
}

func TestOrderRoutes(t *testing.T) {
	f := newFixture(t)
	ala := token(t, testutil.CreateMember(t, f.db, "ala"))

	t.Run("Given no token When creating an order Then 401", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodPost, "/api/orders", "", `{"pick_up_day":"środa"}`)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("Given an order this week When creating another Then 422 with the reason", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodPost, "/api/orders", ala, `{"pick_up_day":"środa"}`)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("first order status = %d, want 201", resp.StatusCode)
		}
		resp, body := f.do(t, http.MethodPost, "/api/orders", ala, `{"pick_up_day":"środa"}`)
		if resp.StatusCode != http.StatusUnprocessableEntity || body["reason"] != string(apperr.ReasonOrderAlreadyExists) {
			t.Errorf("status = %d body = %v, want 422 ORDER_ALREADY_EXISTS", resp.StatusCode, body)
		}
	})

	t.Run("Given a missing order When reading it Then 404", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodGet, "/api/orders/9999", ala, "")
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("Given a member When opening a staff route Then 403", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodGet, "/api/staff/orders", ala, "")
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("status = %d, want 403", resp.StatusCode)
		}
	})
}

func TestReportDownload(t *testing.T) {
	f := newFixture(t)
	staff := token(t, testutil.CreateStaff(t, f.db, "koordynator"))

	req := httptest.NewRequest(http.MethodGet, "/api/staff/reports/mass-box?format=csv", nil)
	req.Header.Set("Authorization", "Bearer "+staff)
	resp, err := f.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body = %s", resp.StatusCode, raw)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q, want text/csv", ct)
	}
	if !strings.HasPrefix(string(raw), "Producent,Ilość łącznie") {
		t.Errorf("body = %q", raw)
	}
	if resp.Header.Get(fiber.HeaderXRequestID) == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.NewNop())})
	app.Get("/invariant", func(*fiber.Ctx) error { return apperr.Invariant("stock went missing", errors.New("boom")) })
	app.Get("/conflict", func(*fiber.Ctx) error { return &apperr.Error{Kind: apperr.KindConcurrency} })
	app.Get("/plain", func(*fiber.Ctx) error { return errors.New("boom") })
	app.Get("/fiber", func(*fiber.Ctx) error { return fiber.NewError(fiber.StatusBadRequest, "bad") })

	tests := []struct {
		path string
		want int
	}{
		{"/invariant", http.StatusInternalServerError},
		{"/conflict", http.StatusConflict},
		{"/plain", http.StatusInternalServerError},
		{"/fiber", http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil), -1)
		if err != nil {
			t.Fatalf("%s: %v", tt.path, err)
		}
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("%s status = %d, want %d", tt.path, resp.StatusCode, tt.want)
		}
		if strings.Contains(string(raw), "boom") {
			t.Errorf("%s leaked the internal error: %s", tt.path, raw)
		}
	}
}
