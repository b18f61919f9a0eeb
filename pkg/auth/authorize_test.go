package auth

import (
	"testing"

	"github.com/google/uuid"
)

func TestAuthorize_GlobalAdmin(t *testing.T) {
	user := &Identity{UserID: uuid.New(), GlobalAdmin: true}
	model := ModelACL{ID: uuid.New(), OwnerID: uuid.New(), AccessLevel: AccessPrivate}

	if !Authorize(user, model, OpWrite) {
		t.Fatal("global admin should be able to write any model")
	}
}

func TestAuthorize_Owner(t *testing.T) {
	userID := uuid.New()
	user := &Identity{UserID: userID}
	model := ModelACL{ID: uuid.New(), OwnerID: userID, AccessLevel: AccessPrivate}

	if !Authorize(user, model, OpWrite) {
		t.Fatal("owner should be able to write their own model")
	}
}

func TestAuthorize_PublicReadOnly(t *testing.T) {
	user := &Identity{UserID: uuid.New()}
	model := ModelACL{ID: uuid.New(), OwnerID: uuid.New(), AccessLevel: AccessPublic}

	if !Authorize(user, model, OpRead) {
		t.Fatal("any user should be able to read a public model")
	}
	if Authorize(user, model, OpWrite) {
		t.Fatal("non-owner should not be able to write a public model")
	}
}

func TestAuthorize_ProtectedMatchingDomain(t *testing.T) {
	user := &Identity{UserID: uuid.New(), Domain: "acme.com"}
	model := ModelACL{ID: uuid.New(), OwnerID: uuid.New(), AccessLevel: AccessProtected, Domain: "acme.com"}

	if !Authorize(user, model, OpRead) {
		t.Fatal("matching-domain user should be able to read a protected model")
	}
}

func TestAuthorize_ProtectedMismatchedDomain(t *testing.T) {
	user := &Identity{UserID: uuid.New(), Domain: "other.com"}
	model := ModelACL{ID: uuid.New(), OwnerID: uuid.New(), AccessLevel: AccessProtected, Domain: "acme.com"}

	if Authorize(user, model, OpRead) {
		t.Fatal("mismatched-domain user should not be able to read a protected model")
	}
}

func TestAuthorize_PrivateForbidden(t *testing.T) {
	user := &Identity{UserID: uuid.New()}
	model := ModelACL{ID: uuid.New(), OwnerID: uuid.New(), AccessLevel: AccessPrivate}

	if Authorize(user, model, OpRead) {
		t.Fatal("non-owner should not be able to read a private model")
	}
}

func TestAuthorize_TeamAdminWrite(t *testing.T) {
	userID := uuid.New()
	user := &Identity{UserID: userID}
	model := ModelACL{ID: uuid.New(), OwnerID: uuid.New(), AccessLevel: AccessPrivate, TeamAdminID: &userID}

	if !Authorize(user, model, OpWrite) {
		t.Fatal("team admin should be able to write a model owned by their team")
	}
}

func TestPermKey(t *testing.T) {
	userID, modelID := uuid.New(), uuid.New()

	k1 := permKey(userID, modelID, OpRead)
	k2 := permKey(userID, modelID, OpRead)
	if k1 != k2 {
		t.Error("permKey should be deterministic")
	}

	k3 := permKey(userID, modelID, OpWrite)
	if k1 == k3 {
		t.Error("different ops should produce different keys")
	}
}
