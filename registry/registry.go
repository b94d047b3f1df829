// Package registry stores the verified-seller records the bot answers from.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"verifybot/database"
	"verifybot/metrics"
	"verifybot/utils"
)

// negative lookup results are cached under this marker so repeated
// /check spam for unknown names doesn't hammer Postgres
const unverifiedMarker = "__unverified__"

const cacheKeyPrefix = "verify:seller:"

// VerifiedUser is one registry record
type VerifiedUser struct {
	Username  string    `json:"username"`
	Service   string    `json:"service"`
	AddedBy   int64     `json:"added_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Registry provides lookups and mutations over the verified_users table,
// with an optional Redis read-through cache in front of it.
type Registry struct {
	db       database.Database
	rdb      *redis.Client
	cacheTTL time.Duration
}

// New builds a Registry. rdb may be nil; lookups then go straight to Postgres.
func New(db database.Database, rdb *redis.Client, cacheTTL time.Duration) *Registry {
	return &Registry{db: db, rdb: rdb, cacheTTL: cacheTTL}
}

// Normalize canonicalizes a Telegram username: lowercase, trimmed,
// exactly one leading @.
func Normalize(username string) string {
	username = strings.ToLower(strings.TrimSpace(username))
	username = strings.TrimPrefix(username, "@")
	return "@" + username
}

// LookupVariants returns the candidate spellings checked for a username.
// Sellers advertise with and without underscores, and some platforms swap
// underscores for hyphens, so all spellings count as the same seller.
func LookupVariants(username string) []string {
	normalized := Normalize(username)
	variants := []string{normalized}
	seen := map[string]struct{}{normalized: {}}
	for _, candidate := range []string{
		strings.ReplaceAll(normalized, "_", ""),
		strings.ReplaceAll(normalized, "_", "-"),
	} {
		if _, dup := seen[candidate]; !dup {
			seen[candidate] = struct{}{}
			variants = append(variants, candidate)
		}
	}
	return variants
}

// Lookup finds a verified seller by username, checking all spelling variants.
// The second return value reports whether the seller is verified. A cache
// failure is never surfaced; the lookup falls through to Postgres.
func (r *Registry) Lookup(ctx context.Context, username string) (VerifiedUser, bool, error) {
	normalized := Normalize(username)

	if user, found, hit := r.cacheGet(ctx, normalized); hit {
		if found {
			metrics.IncrementRegistryLookup("verified")
			return user, true, nil
		}
		metrics.IncrementRegistryLookup("unverified")
		return VerifiedUser{}, false, nil
	}

	var user VerifiedUser
	metrics.IncrementDatabaseQuery("select")
	err := r.db.QueryRow(ctx, `
        SELECT username, service, COALESCE(added_by, 0), created_at, updated_at
        FROM verified_users
        WHERE username = ANY($1)
        LIMIT 1`,
		LookupVariants(username)).Scan(&user.Username, &user.Service, &user.AddedBy, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			r.cacheSetNegative(ctx, normalized)
			metrics.IncrementRegistryLookup("unverified")
			return VerifiedUser{}, false, nil
		}
		metrics.IncrementRegistryLookup("error")
		metrics.IncrementError("query", "database")
		return VerifiedUser{}, false, err
	}

	r.cacheSet(ctx, normalized, user)
	metrics.IncrementRegistryLookup("verified")
	return user, true, nil
}

// Upsert adds or updates a verified seller and records an audit row.
func (r *Registry) Upsert(ctx context.Context, username, service string, addedBy int64) (VerifiedUser, error) {
	normalized := Normalize(username)

	var user VerifiedUser
	metrics.IncrementDatabaseQuery("insert")
	err := r.db.QueryRow(ctx, `
        INSERT INTO verified_users (username, service, added_by)
        VALUES ($1, $2, $3)
        ON CONFLICT (username) DO UPDATE
            SET service = EXCLUDED.service,
                added_by = EXCLUDED.added_by,
                updated_at = NOW()
        RETURNING username, service, COALESCE(added_by, 0), created_at, updated_at`,
		normalized, service, addedBy).Scan(&user.Username, &user.Service, &user.AddedBy, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		metrics.IncrementError("query", "database")
		return VerifiedUser{}, err
	}

	r.cacheInvalidate(ctx, normalized)
	r.audit(ctx, addedBy, "add", normalized, service)
	return user, nil
}

// Remove deletes a verified seller. Returns whether a record existed.
func (r *Registry) Remove(ctx context.Context, username string, actorID int64) (bool, error) {
	normalized := Normalize(username)

	metrics.IncrementDatabaseQuery("delete")
	tag, err := r.db.Exec(ctx, "DELETE FROM verified_users WHERE username = $1", normalized)
	if err != nil {
		metrics.IncrementError("query", "database")
		return false, err
	}

	r.cacheInvalidate(ctx, normalized)
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	r.audit(ctx, actorID, "remove", normalized, "")
	return true, nil
}

// List pages through the registry ordered by username.
func (r *Registry) List(ctx context.Context, limit, offset int) ([]VerifiedUser, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	metrics.IncrementDatabaseQuery("select")
	rows, err := r.db.Query(ctx, `
        SELECT username, service, COALESCE(added_by, 0), created_at, updated_at
        FROM verified_users
        ORDER BY username ASC
        LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		metrics.IncrementError("query", "database")
		return nil, err
	}
	defer rows.Close()

	users := []VerifiedUser{}
	for rows.Next() {
		var user VerifiedUser
		if err := rows.Scan(&user.Username, &user.Service, &user.AddedBy, &user.CreatedAt, &user.UpdatedAt); err != nil {
			continue
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Count returns the number of verified sellers.
func (r *Registry) Count(ctx context.Context) (int64, error) {
	var count int64
	metrics.IncrementDatabaseQuery("select")
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM verified_users").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// audit records a mutation; failures are logged, never propagated
func (r *Registry) audit(ctx context.Context, actorID int64, action, target, detail string) {
	metrics.IncrementDatabaseQuery("insert")
	if _, err := r.db.Exec(ctx,
		"INSERT INTO audit_log (actor_id, action, target, detail) VALUES ($1, $2, $3, $4)",
		actorID, action, target, detail); err != nil {
		utils.LogError("AUDIT_WRITE_FAILED", err, "action", action, "target", target)
	}
}

func (r *Registry) cacheGet(ctx context.Context, normalized string) (VerifiedUser, bool, bool) {
	if r.rdb == nil {
		metrics.IncrementCacheOp("skip")
		return VerifiedUser{}, false, false
	}
	raw, err := r.rdb.Get(ctx, cacheKeyPrefix+normalized).Result()
	if err != nil {
		if err != redis.Nil {
			metrics.IncrementCacheOp("error")
			metrics.IncrementError("get", "redis")
		} else {
			metrics.IncrementCacheOp("miss")
		}
		return VerifiedUser{}, false, false
	}
	if raw == unverifiedMarker {
		metrics.IncrementCacheOp("hit")
		return VerifiedUser{}, false, true
	}
	var user VerifiedUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		metrics.IncrementCacheOp("error")
		return VerifiedUser{}, false, false
	}
	metrics.IncrementCacheOp("hit")
	return user, true, true
}

func (r *Registry) cacheSet(ctx context.Context, normalized string, user VerifiedUser) {
	if r.rdb == nil || r.cacheTTL <= 0 {
		return
	}
	payload, err := json.Marshal(user)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, cacheKeyPrefix+normalized, payload, r.cacheTTL).Err(); err != nil {
		metrics.IncrementError("set", "redis")
	}
}

func (r *Registry) cacheSetNegative(ctx context.Context, normalized string) {
	if r.rdb == nil || r.cacheTTL <= 0 {
		return
	}
	// Shorter TTL: a mutation can only invalidate the variants of the
	// name it was given, not every underscore spelling that aliases it,
	// so a stale negative entry under a sibling spelling must age out
	// fast. This also makes an /add visible quickly.
	if err := r.rdb.Set(ctx, cacheKeyPrefix+normalized, unverifiedMarker, r.cacheTTL/4).Err(); err != nil {
		metrics.IncrementError("set", "redis")
	}
}

func (r *Registry) cacheInvalidate(ctx context.Context, normalized string) {
	if r.rdb == nil {
		return
	}
	keys := make([]string, 0, 3)
	for _, variant := range LookupVariants(normalized) {
		keys = append(keys, cacheKeyPrefix+variant)
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		metrics.IncrementError("del", "redis")
	}
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
