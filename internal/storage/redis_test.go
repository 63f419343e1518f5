package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minus-twelve/construct/types"
)

func TestNewRedisClient(t *testing.T) {
	t.Run("default prefix", func(t *testing.T) {
		mr := miniredis.RunT(t)

		client, prefix, err := NewRedisClient(context.Background(), types.RedisConfig{Addr: mr.Addr()})
		require.NoError(t, err)
		defer client.Close()

		assert.Equal(t, DefaultPrefix, prefix)
	})

	t.Run("custom prefix", func(t *testing.T) {
		mr := miniredis.RunT(t)

		client, prefix, err := NewRedisClient(context.Background(), types.RedisConfig{Addr: mr.Addr(), Prefix: "lab:"})
		require.NoError(t, err)
		defer client.Close()

		assert.Equal(t, "lab:", prefix)
	})

	t.Run("unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, _, err := NewRedisClient(context.Background(), types.RedisConfig{Addr: addr})
		assert.Error(t, err)
	})
}
