package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ceneo-opinions/internal/config"
	"ceneo-opinions/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Observability.LogLevel = "error"
	return cfg
}

func TestBuildDefault(t *testing.T) {
	rt, err := Build(testConfig(t))
	require.NoError(t, err)
	defer func() { assert.NoError(t, rt.Close()) }()

	assert.NotNil(t, rt.Service)
	assert.NotNil(t, rt.Metrics)
	assert.Equal(t, "Polecam", rt.Layout.Recommend)
	_, cached := rt.Repo.(*storage.Cached)
	assert.False(t, cached)
}

func TestBuildWithCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.CacheSize = 16

	rt, err := Build(cfg)
	require.NoError(t, err)
	defer rt.Close()

	_, cached := rt.Repo.(*storage.Cached)
	assert.True(t, cached)
}

func TestBuildBadLayout(t *testing.T) {
	cfg := testConfig(t)
	cfg.Site.LayoutFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := Build(cfg)
	assert.Error(t, err)
}

func TestBuildBadLogLevel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Observability.LogLevel = "loud"

	_, err := Build(cfg)
	assert.Error(t, err)
}

func TestBuildFailureReturnsError(t *testing.T) {
	cfg := testConfig(t)
	cfg.Observability.LogPath = filepath.Join(t.TempDir(), "app.log")
	cfg.Site.LayoutFile = filepath.Join(t.TempDir(), "missing.yaml")

	var rt *Runtime
	var err error
	require.NotPanics(t, func() { rt, err = Build(cfg) })
	assert.Error(t, err)
	assert.Nil(t, rt)
}

func TestBuildRedisUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = "127.0.0.1:1"

	var rt *Runtime
	var err error
	require.NotPanics(t, func() { rt, err = Build(cfg) })
	assert.ErrorContains(t, err, "failed to connect to redis")
	assert.Nil(t, rt)
}

func TestRuntimeCloseRunsInReverse(t *testing.T) {
	var order []int
	rt := &Runtime{}
	for i := 1; i <= 3; i++ {
		i := i
		rt.closers = append(rt.closers, func() error {
			order = append(order, i)
			return nil
		})
	}

	require.NoError(t, rt.Close())
	assert.Equal(t, []int{3, 2, 1}, order)

	var nilRuntime *Runtime
	assert.NoError(t, nilRuntime.Close())
}
