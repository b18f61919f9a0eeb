package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Op is the operation being authorized against a model.
type Op string

const (
	OpRead  Op = "read"
	OpWrite Op = "write"
)

// AccessLevel is a Model's access_level column — spec.md §3.
type AccessLevel string

const (
	AccessPublic    AccessLevel = "public"
	AccessProtected AccessLevel = "protected"
	AccessPrivate   AccessLevel = "private"
)

// ModelACL is the subset of a Model row Authorize needs.
type ModelACL struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Domain      string
	AccessLevel AccessLevel
	TeamAdminID *uuid.UUID // the user_id of the owning team's team_admin, if any
}

// Authorize implements spec.md §4.A's ordered rule:
// global admin ⇒ ok; owner ⇒ ok; public (or protected+matching domain) ⇒
// read-ok; team_admin of the model's team ⇒ write-ok; else forbidden.
func Authorize(user *Identity, model ModelACL, op Op) bool {
	if user.GlobalAdmin {
		return true
	}
	if user.UserID == model.OwnerID {
		return true
	}

	readOK := model.AccessLevel == AccessPublic ||
		(model.AccessLevel == AccessProtected && user.Domain != "" && user.Domain == model.Domain)

	if op == OpRead && readOK {
		return true
	}

	if model.TeamAdminID != nil && *model.TeamAdminID == user.UserID {
		return true
	}

	return false
}

// PermissionCache memoizes Authorize decisions per (user_id, model_id, op),
// Redis-backed with a 5-minute TTL — spec.md §4.A, grounded on the
// Redis-then-fallback shape of pkg/alert's deduplicator.
type PermissionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPermissionCache creates a PermissionCache with the spec's default TTL.
func NewPermissionCache(rdb *redis.Client) *PermissionCache {
	return &PermissionCache{rdb: rdb, ttl: 5 * time.Minute}
}

func permKey(userID, modelID uuid.UUID, op Op) string {
	return fmt.Sprintf("perm:%s:%s:%s", userID, modelID, op)
}

// Get returns a cached decision and whether it was found.
func (c *PermissionCache) Get(ctx context.Context, userID, modelID uuid.UUID, op Op) (allowed, found bool) {
	val, err := c.rdb.Get(ctx, permKey(userID, modelID, op)).Result()
	if err != nil {
		return false, false
	}
	return val == "1", true
}

// Set caches a decision for ttl.
func (c *PermissionCache) Set(ctx context.Context, userID, modelID uuid.UUID, op Op, allowed bool) {
	val := "0"
	if allowed {
		val = "1"
	}
	_ = c.rdb.Set(ctx, permKey(userID, modelID, op), val, c.ttl).Err()
}

// InvalidateUser proactively clears cached decisions for a user across both
// operations on a model — called on any write to User/Team/Model rows.
func (c *PermissionCache) InvalidateUser(ctx context.Context, userID, modelID uuid.UUID) {
	c.rdb.Del(ctx, permKey(userID, modelID, OpRead), permKey(userID, modelID, OpWrite))
}

// InvalidateModel clears cached decisions for every user against one model.
// Permission keys are per-user so a full invalidation requires a scan; this
// is acceptable because model ACL changes are rare (spec.md §9).
func (c *PermissionCache) InvalidateModel(ctx context.Context, modelID uuid.UUID) {
	iter := c.rdb.Scan(ctx, 0, fmt.Sprintf("perm:*:%s:*", modelID), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		c.rdb.Del(ctx, keys...)
	}
}

// Resolve evaluates Authorize, consulting and populating the cache.
func Resolve(ctx context.Context, cache *PermissionCache, user *Identity, model ModelACL, op Op) bool {
	if cache != nil {
		if allowed, found := cache.Get(ctx, user.UserID, model.ID, op); found {
			return allowed
		}
	}

	allowed := Authorize(user, model, op)

	if cache != nil {
		cache.Set(ctx, user.UserID, model.ID, op, allowed)
	}
	return allowed
}
