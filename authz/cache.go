package authz

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/phonginreallife/taskboard/internal/metrics"
)

// CachedStore wraps a Store and keeps membership roles in Redis.
// Only found roles are cached; a missing membership always goes to the inner
// store so a newly added member is seen immediately. Adding a member deletes
// the key; removing one replaces it with a short-lived tombstone, and fills
// only write absent keys, so a read that raced the removal cannot put the
// revoked role back. Existence lookups are never cached.
type CachedStore struct {
	Store

	rdb     *redis.Client
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewCachedStore creates a CachedStore. logger and m may be nil.
func NewCachedStore(inner Store, rdb *redis.Client, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *CachedStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedStore{
		Store:   inner,
		rdb:     rdb,
		ttl:     ttl,
		logger:  logger,
		metrics: m,
	}
}

var _ Store = (*CachedStore)(nil)

const (
	revokedMarker = "-"
	// revokedTTL bounds how late a racing read may still try to fill the key
	revokedTTL = 30 * time.Second
)

func orgRoleKey(userID, orgID string) string {
	return fmt.Sprintf("taskboard:role:org:%s:%s", orgID, userID)
}

func projectRoleKey(userID, projectID string) string {
	return fmt.Sprintf("taskboard:role:project:%s:%s", projectID, userID)
}

// OrgRole returns the cached organization role or loads it from the inner store
func (c *CachedStore) OrgRole(ctx context.Context, userID, orgID string) (OrgRole, error) {
	key := orgRoleKey(userID, orgID)
	if cached, ok := c.get(ctx, key, "org"); ok {
		return OrgRole(cached), nil
	}

	role, err := c.Store.OrgRole(ctx, userID, orgID)
	if err != nil {
		return "", err
	}
	if role != "" {
		c.set(ctx, key, string(role))
	}
	return role, nil
}

// ProjectRole returns the cached project role or loads it from the inner store
func (c *CachedStore) ProjectRole(ctx context.Context, userID, projectID string) (ProjectRole, error) {
	key := projectRoleKey(userID, projectID)
	if cached, ok := c.get(ctx, key, "project"); ok {
		return ProjectRole(cached), nil
	}

	role, err := c.Store.ProjectRole(ctx, userID, projectID)
	if err != nil {
		return "", err
	}
	if role != "" {
		c.set(ctx, key, string(role))
	}
	return role, nil
}

// AddOrgMember writes through and evicts the cached role
func (c *CachedStore) AddOrgMember(ctx context.Context, m *Membership) error {
	if err := c.Store.AddOrgMember(ctx, m); err != nil {
		return err
	}
	c.evict(ctx, orgRoleKey(m.UserID, m.OrganizationID))
	return nil
}

// RemoveOrgMember writes through and revokes the cached org role together with
// the user's project roles in that organization
func (c *CachedStore) RemoveOrgMember(ctx context.Context, userID, orgID string) error {
	keys := []string{orgRoleKey(userID, orgID)}
	projects, err := c.Store.ListProjectsByOrg(ctx, orgID)
	if err != nil {
		return err
	}
	for _, p := range projects {
		keys = append(keys, projectRoleKey(userID, p.ID))
	}

	// Revoke even when the delete fails; a stale positive role is the only unsafe entry
	defer c.revoke(ctx, keys...)
	return c.Store.RemoveOrgMember(ctx, userID, orgID)
}

// AddProjectMember writes through and evicts the cached role
func (c *CachedStore) AddProjectMember(ctx context.Context, m *ProjectMembership) error {
	if err := c.Store.AddProjectMember(ctx, m); err != nil {
		return err
	}
	c.evict(ctx, projectRoleKey(m.UserID, m.ProjectID))
	return nil
}

// RemoveProjectMember writes through and evicts the cached role
func (c *CachedStore) RemoveProjectMember(ctx context.Context, userID, projectID string) error {
	defer c.revoke(ctx, projectRoleKey(userID, projectID))
	return c.Store.RemoveProjectMember(ctx, userID, projectID)
}

func (c *CachedStore) get(ctx context.Context, key, kind string) (string, bool) {
	val, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == redis.Nil, err == nil && val == revokedMarker:
		c.metrics.RecordCache(kind, false)
		return "", false
	case err != nil:
		// Redis trouble degrades to uncached reads
		c.logger.Warn("role cache read failed", zap.String("key", key), zap.Error(err))
		c.metrics.RecordCache(kind, false)
		return "", false
	}
	c.metrics.RecordCache(kind, true)
	return val, true
}

// set fills an absent key only; a revocation marker wins over a late fill
func (c *CachedStore) set(ctx context.Context, key, value string) {
	if err := c.rdb.SetNX(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.Warn("role cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedStore) evict(ctx context.Context, key string) {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("role cache evict failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedStore) revoke(ctx context.Context, keys ...string) {
	pipe := c.rdb.Pipeline()
	for _, key := range keys {
		pipe.Set(ctx, key, revokedMarker, revokedTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("role cache revoke failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
