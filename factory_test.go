package construct

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minus-twelve/construct/directory"
	"github.com/minus-twelve/construct/types"
)

func TestCreateStore(t *testing.T) {
	store, metrics, err := CreateStore(types.MemoryConfig{MaxSessions: 2, MaxSessionDuration: 60}, nil)
	require.NoError(t, err)
	assert.Nil(t, metrics)
	assert.Equal(t, 2, store.MaxSessions())
	assert.Equal(t, time.Minute, store.MaxSessionDuration())

	reg := prometheus.NewRegistry()
	_, metrics, err = CreateStore(types.MemoryConfig{}, reg)
	require.NoError(t, err)
	assert.NotNil(t, metrics)

	_, _, err = CreateStore(types.MemoryConfig{}, reg)
	assert.Error(t, err, "duplicate registration")
}

func TestCreateDirectory(t *testing.T) {
	ctx := context.Background()

	t.Run("static", func(t *testing.T) {
		dir, err := CreateDirectory(ctx, types.DirectoryConfig{
			Type:   "static",
			Static: map[string][]string{"abc": {directory.LabManager}},
		})
		require.NoError(t, err)

		ok, err := dir.HasPermission(ctx, "abc", directory.LabManager)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		_, err := mr.SAdd("construct:perm:labmanager", "abc")
		require.NoError(t, err)

		dir, err := CreateDirectory(ctx, types.DirectoryConfig{
			Type:  "redis",
			Redis: types.RedisConfig{Addr: mr.Addr()},
		})
		require.NoError(t, err)
		defer dir.(*directory.Redis).Close()

		ok, err := dir.HasPermission(ctx, "ABC", directory.LabManager)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("invalid type", func(t *testing.T) {
		_, err := CreateDirectory(ctx, types.DirectoryConfig{Type: "ldap"})
		assert.ErrorIs(t, err, ErrInvalidDirectoryType)
	})
}
