// Package identity collapses the dual identity scheme. The system keeps an
// employee record and a login-account record side by side, joined only by
// email; chat must see exactly one id per person or private conversations
// split and dedup breaks. Every id the chat layer touches goes through
// Resolve.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	cacheKeyPrefix = "identity:resolve:"
	cacheTTL       = 15 * time.Minute
)

//go:generate mockgen -source=resolver.go -destination=mock/resolver_mock.go -package=mock
type Resolver interface {
	// Resolve maps an employee id to its login-account id via the shared
	// email. Ids that do not name an employee, or employees without a
	// matching account, pass through unchanged.
	Resolve(ctx context.Context, id string) (string, error)
	// ResolveAll resolves a batch, preserving order and dropping duplicates.
	ResolveAll(ctx context.Context, ids []string) ([]string, error)
}

type resolver struct {
	db     *gorm.DB
	rdb    *redis.Client
	sf     *singleflight.Group
	logger *zap.Logger
}

func NewResolver(db *gorm.DB, rdb *redis.Client, logger ...*zap.Logger) Resolver {
	l := zap.L().Named("identity.resolver")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("identity.resolver")
	}
	return &resolver{db: db, rdb: rdb, sf: &singleflight.Group{}, logger: l}
}

func (r *resolver) Resolve(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", nil
	}

	if r.rdb != nil {
		if cached, err := r.rdb.Get(ctx, cacheKeyPrefix+id).Result(); err == nil && cached != "" {
			return cached, nil
		}
	}

	v, err, _ := r.sf.Do(id, func() (any, error) {
		resolved, err := r.lookup(ctx, id)
		if err != nil {
			return "", err
		}
		if r.rdb != nil {
			if err := r.rdb.Set(ctx, cacheKeyPrefix+id, resolved, cacheTTL).Err(); err != nil {
				r.logger.Warn("identity cache write failed", zap.String("id", id), zap.Error(err))
			}
		}
		return resolved, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *resolver) ResolveAll(ctx context.Context, ids []string) ([]string, error) {
	resolved := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		rid, err := r.Resolve(ctx, id)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[rid]; dup {
			continue
		}
		seen[rid] = struct{}{}
		resolved = append(resolved, rid)
	}
	return resolved, nil
}

func (r *resolver) lookup(ctx context.Context, id string) (string, error) {
	var email string
	err := r.db.WithContext(ctx).
		Table("employees").
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Pluck("email", &email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return id, nil
		}
		return "", err
	}
	if email == "" {
		// Not an employee id; already a user id or unknown.
		return id, nil
	}

	var userID string
	err = r.db.WithContext(ctx).
		Table("users").
		Where("email = ?", email).
		Where("deleted_at IS NULL").
		Limit(1).
		Pluck("id", &userID).Error
	if err != nil {
		return "", err
	}
	if userID == "" {
		return id, nil
	}

	r.logger.Debug("normalized employee id to user id",
		zap.String("employee_id", id),
		zap.String("user_id", userID),
	)
	return userID, nil
}
