package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token kinds distinguish the three bearer-token surfaces the control plane
// issues: user session tokens, deployment-worker job tokens (component E →
// D), and semantic-cache scope tokens (component G).
const (
	TokenKindSession = "session"
	TokenKindJob     = "job"
	TokenKindCache   = "cache"
)

// Claims is the JWT payload shared by every token kind the control plane
// issues. Only the fields relevant to a given kind are populated.
type Claims struct {
	jwt.RegisteredClaims
	Kind         string `json:"kind"`
	UserID       string `json:"user_id,omitempty"`
	ModelID      string `json:"model_id,omitempty"`
	DeploymentID string `json:"deployment_id,omitempty"`
}

// TokenManager issues and verifies HS256 bearer tokens. One instance is
// shared by session login, job-token issuance, and cache-token issuance.
type TokenManager struct {
	secret     []byte
	clockSkew  time.Duration
	defaultTTL time.Duration
}

// NewTokenManager creates a TokenManager. secret must be non-empty.
func NewTokenManager(secret string) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret must not be empty")
	}
	return &TokenManager{
		secret:     []byte(secret),
		clockSkew:  60 * time.Second,
		defaultTTL: 15 * time.Minute,
	}, nil
}

// IssueSession issues a 15-minute user session token — spec.md §4.A.
func (tm *TokenManager) IssueSession(userID uuid.UUID) (string, error) {
	return tm.issue(Claims{Kind: TokenKindSession, UserID: userID.String()}, tm.defaultTTL)
}

// IssueJobToken issues a token a deployment worker presents to
// POST /deploy/update-status, scoped to one model/deployment pair.
func (tm *TokenManager) IssueJobToken(modelID, deploymentID uuid.UUID, ttl time.Duration) (string, error) {
	return tm.issue(Claims{
		Kind:         TokenKindJob,
		ModelID:      modelID.String(),
		DeploymentID: deploymentID.String(),
	}, ttl)
}

// IssueCacheToken issues a 15-minute cache-scope token — spec.md §4.G Token op.
func (tm *TokenManager) IssueCacheToken(modelID uuid.UUID) (string, error) {
	return tm.issue(Claims{Kind: TokenKindCache, ModelID: modelID.String()}, tm.defaultTTL)
}

func (tm *TokenManager) issue(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    "modelbazaar-controlplane",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a bearer token, enforcing the 60s clock-skew
// tolerance spec.md §4.A requires, and that it matches the expected kind.
func (tm *TokenManager) Verify(raw, wantKind string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return tm.secret, nil
	}, jwt.WithLeeway(tm.clockSkew))
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Kind != wantKind {
		return nil, fmt.Errorf("token kind %q does not match expected %q", claims.Kind, wantKind)
	}
	return claims, nil
}
