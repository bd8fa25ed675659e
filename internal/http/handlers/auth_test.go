package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/pabloosss/Urlopy/internal/domain/user"
	"github.com/pabloosss/Urlopy/internal/security"
)

type fakeUserStore struct {
	byEmail map[string]user.User
	byID    map[string]user.User
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	u, ok := f.byEmail[strings.ToLower(email)]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, id string) (user.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

type fakeTokenIssuer struct{}

func (fakeTokenIssuer) GenerateAccessToken(userID, email, role string) (string, error) {
	return "token-for-" + userID, nil
}

func TestLogin(t *testing.T) {
	hash, err := security.HashPassword("s3cretpass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	u := user.User{ID: "emp-1", Email: "emp@example.com", PasswordHash: hash, Role: user.RoleEmployee}
	store := &fakeUserStore{
		byEmail: map[string]user.User{"emp@example.com": u},
		byID:    map[string]user.User{"emp-1": u},
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/login", NewAuthHandler(store, fakeTokenIssuer{}).Login)

	do := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	// happy path
	w := do(`{"email":"emp@example.com","password":"s3cretpass"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		AccessToken string    `json:"accessToken"`
		User        user.User `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AccessToken != "token-for-emp-1" {
		t.Fatalf("token = %q", resp.AccessToken)
	}
	if strings.Contains(w.Body.String(), hash) {
		t.Fatal("password hash leaked into the response")
	}

	// wrong password and unknown email must be indistinguishable
	wrongPass := do(`{"email":"emp@example.com","password":"nope-nope"}`)
	unknown := do(`{"email":"ghost@example.com","password":"s3cretpass"}`)

	if wrongPass.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("codes = %d / %d, want 401 / 401", wrongPass.Code, unknown.Code)
	}

	// missing fields fail binding
	if w := do(`{"email":"emp@example.com"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing password: status = %d, want 400", w.Code)
	}
}

func TestMe(t *testing.T) {
	u := user.User{ID: "emp-1", Email: "emp@example.com", Role: user.RoleEmployee, Name: "Emp"}
	store := &fakeUserStore{byID: map[string]user.User{"emp-1": u}}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", identity("emp-1", user.RoleEmployee), NewAuthHandler(store, fakeTokenIssuer{}).Me)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var got user.User
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "emp-1" || got.Name != "Emp" {
		t.Fatalf("got %+v", got)
	}
}
