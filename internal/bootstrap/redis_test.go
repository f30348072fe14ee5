package bootstrap_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/index-checker/internal/bootstrap"
	"github.com/jonesrussell/index-checker/internal/config"
	"github.com/jonesrussell/index-checker/internal/testhelpers"
)

func TestSetupKVStore(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name      string
		redis     config.RedisConfig
		wantRedis bool
	}{
		{name: "disabled", redis: config.RedisConfig{Enabled: false, Address: mr.Addr()}},
		{name: "reachable", redis: config.RedisConfig{Enabled: true, Address: mr.Addr()}, wantRedis: true},
		{name: "unreachable falls back", redis: config.RedisConfig{Enabled: true, Address: "127.0.0.1:1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := bootstrap.SetupKVStore(&config.Config{Redis: tt.redis}, testhelpers.NewTestLogger())
			defer kv.Close()

			assert.Equal(t, tt.wantRedis, kv.Redis())
			require.NoError(t, kv.Ping(context.Background()))

			ctx := context.Background()
			require.NoError(t, kv.Set(ctx, "k", "v", 0))
			var got string
			found, err := kv.Get(ctx, "k", &got)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "v", got)
		})
	}

	assert.True(t, mr.Exists("index-checker:k"))
}
