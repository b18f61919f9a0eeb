package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewTokenManager_EmptySecret(t *testing.T) {
	if _, err := NewTokenManager(""); err == nil {
		t.Fatal("expected error for empty secret, got nil")
	}
}

func TestIssueAndVerifySession(t *testing.T) {
	tm, err := NewTokenManager("test-secret")
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}

	userID := uuid.New()
	raw, err := tm.IssueSession(userID)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	claims, err := tm.Verify(raw, TokenKindSession)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != userID.String() {
		t.Errorf("UserID = %q, want %q", claims.UserID, userID.String())
	}
	if claims.Kind != TokenKindSession {
		t.Errorf("Kind = %q, want %q", claims.Kind, TokenKindSession)
	}
}

func TestVerify_WrongKind(t *testing.T) {
	tm, _ := NewTokenManager("test-secret")
	raw, _ := tm.IssueSession(uuid.New())

	if _, err := tm.Verify(raw, TokenKindJob); err == nil {
		t.Fatal("expected kind mismatch error, got nil")
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	tm1, _ := NewTokenManager("secret-one")
	tm2, _ := NewTokenManager("secret-two")

	raw, _ := tm1.IssueSession(uuid.New())
	if _, err := tm2.Verify(raw, TokenKindSession); err == nil {
		t.Fatal("expected signature verification failure, got nil")
	}
}

func TestVerify_Expired(t *testing.T) {
	tm, _ := NewTokenManager("test-secret")
	raw, err := tm.issue(Claims{Kind: TokenKindSession, UserID: uuid.New().String()}, -time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := tm.Verify(raw, TokenKindSession); err == nil {
		t.Fatal("expected expired token to fail verification")
	}
}

func TestIssueJobToken(t *testing.T) {
	tm, _ := NewTokenManager("test-secret")
	modelID, deploymentID := uuid.New(), uuid.New()

	raw, err := tm.IssueJobToken(modelID, deploymentID, time.Hour)
	if err != nil {
		t.Fatalf("IssueJobToken: %v", err)
	}

	claims, err := tm.Verify(raw, TokenKindJob)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.ModelID != modelID.String() || claims.DeploymentID != deploymentID.String() {
		t.Errorf("claims = %+v, want model %s deployment %s", claims, modelID, deploymentID)
	}
}

func TestIssueCacheToken(t *testing.T) {
	tm, _ := NewTokenManager("test-secret")
	modelID := uuid.New()

	raw, err := tm.IssueCacheToken(modelID)
	if err != nil {
		t.Fatalf("IssueCacheToken: %v", err)
	}

	claims, err := tm.Verify(raw, TokenKindCache)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.ModelID != modelID.String() {
		t.Errorf("ModelID = %q, want %q", claims.ModelID, modelID.String())
	}
}
