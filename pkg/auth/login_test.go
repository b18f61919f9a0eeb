package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type fakeBackend struct {
	userID uuid.UUID
	err    error
}

func (b *fakeBackend) Authenticate(ctx context.Context, identifier, secret string) (uuid.UUID, error) {
	if b.err != nil {
		return uuid.Nil, b.err
	}
	return b.userID, nil
}
func (b *fakeBackend) CreateUser(ctx context.Context, username, email, secret string) (uuid.UUID, error) {
	return uuid.Nil, nil
}
func (b *fakeBackend) DeleteUser(ctx context.Context, userID uuid.UUID) error { return nil }
func (b *fakeBackend) ResetPassword(ctx context.Context, email string) error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoginHandler_HandleLogin_Success(t *testing.T) {
	tm, err := NewTokenManager("test-secret")
	if err != nil {
		t.Fatal(err)
	}
	backend := &fakeBackend{userID: uuid.New()}
	h := NewLoginHandler(tm, backend, nil, nil, testLogger())

	r := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"alice","password":"supersecret"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleLogin(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "token") {
		t.Errorf("response missing token field: %s", w.Body.String())
	}
}

func TestLoginHandler_HandleLogin_InvalidCredentials(t *testing.T) {
	tm, err := NewTokenManager("test-secret")
	if err != nil {
		t.Fatal(err)
	}
	backend := &fakeBackend{err: context.DeadlineExceeded}
	h := NewLoginHandler(tm, backend, nil, nil, testLogger())

	r := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"alice","password":"wrong"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleLogin(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestLoginHandler_HandleMe_RequiresIdentity(t *testing.T) {
	tm, _ := NewTokenManager("test-secret")
	h := NewLoginHandler(tm, &fakeBackend{}, nil, nil, testLogger())

	r := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()

	h.HandleMe(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestLoginHandler_HandleMe_ReturnsIdentity(t *testing.T) {
	tm, _ := NewTokenManager("test-secret")
	h := NewLoginHandler(tm, &fakeBackend{}, nil, nil, testLogger())

	id := &Identity{UserID: uuid.New(), Username: "alice"}
	r := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	r = r.WithContext(NewContext(r.Context(), id))
	w := httptest.NewRecorder()

	h.HandleMe(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "alice") {
		t.Errorf("response missing username: %s", w.Body.String())
	}
}

func TestLoginHandler_HandleRefresh_Success(t *testing.T) {
	tm, err := NewTokenManager("test-secret")
	if err != nil {
		t.Fatal(err)
	}
	userID := uuid.New()
	token, err := tm.IssueSession(userID)
	if err != nil {
		t.Fatal(err)
	}
	h := NewLoginHandler(tm, &fakeBackend{}, nil, nil, testLogger())

	r := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	h.HandleRefresh(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "token") {
		t.Errorf("response missing token field: %s", w.Body.String())
	}
}

func TestLoginHandler_HandleRefresh_InvalidToken(t *testing.T) {
	tm, _ := NewTokenManager("test-secret")
	h := NewLoginHandler(tm, &fakeBackend{}, nil, nil, testLogger())

	r := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	r.Header.Set("Authorization", "Bearer not-a-real-token")
	w := httptest.NewRecorder()

	h.HandleRefresh(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestLoginHandler_HandlePasswordResetConfirm_Unsupported(t *testing.T) {
	tm, _ := NewTokenManager("test-secret")
	h := NewLoginHandler(tm, &fakeBackend{}, nil, nil, testLogger())

	r := httptest.NewRequest(http.MethodPost, "/auth/password-reset/confirm", strings.NewReader(`{"code":"abc","new_password":"supersecret"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandlePasswordResetConfirm(w, r)

	if w.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", w.Code)
	}
}
