package construct

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/minus-twelve/construct/directory"
	internalstorage "github.com/minus-twelve/construct/internal/storage"
	"github.com/minus-twelve/construct/storage"
	"github.com/minus-twelve/construct/types"
)

var ErrInvalidDirectoryType = errors.New("invalid directory type")

// CreateStore builds the session store from cfg. When reg is non-nil the
// store reports to a Metrics registered on it.
func CreateStore(cfg types.MemoryConfig, reg prometheus.Registerer) (*storage.MemoryStore, *Metrics, error) {
	opts := []storage.Option{storage.WithSlidingRefresh(cfg.SlidingRefresh)}

	var metrics *Metrics
	if reg != nil {
		m, err := NewMetrics(reg)
		if err != nil {
			return nil, nil, err
		}
		metrics = m
		opts = append(opts, storage.WithObserver(m))
	}

	return storage.NewMemoryStore(cfg.MaxSessions, cfg.Duration(), opts...), metrics, nil
}

func CreateDirectory(ctx context.Context, cfg types.DirectoryConfig) (directory.Directory, error) {
	switch cfg.Type {
	case "", "static":
		return directory.NewStatic(cfg.Static), nil
	case "redis":
		client, prefix, err := internalstorage.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("create redis directory: %w", err)
		}
		return directory.NewRedis(client, prefix), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirectoryType, cfg.Type)
	}
}
