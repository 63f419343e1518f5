package directory

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis keeps one set per permission at <prefix>perm:<permission> holding
// lowercased hashed ids.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(permission string) string {
	return r.prefix + "perm:" + normalize(permission)
}

func (r *Redis) HasPermission(ctx context.Context, hashedID, permission string) (bool, error) {
	ok, err := r.client.SIsMember(ctx, r.key(permission), normalize(hashedID)).Result()
	if err != nil {
		return false, fmt.Errorf("check permission %s: %w", permission, err)
	}
	return ok, nil
}

func (r *Redis) Grant(ctx context.Context, hashedID, permission string) error {
	if err := r.client.SAdd(ctx, r.key(permission), normalize(hashedID)).Err(); err != nil {
		return fmt.Errorf("grant permission %s: %w", permission, err)
	}
	return nil
}

func (r *Redis) Revoke(ctx context.Context, hashedID, permission string) error {
	if err := r.client.SRem(ctx, r.key(permission), normalize(hashedID)).Err(); err != nil {
		return fmt.Errorf("revoke permission %s: %w", permission, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
