package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/modelforge/internal/account"
	"github.com/philipparndt/modelforge/internal/config"
	"github.com/philipparndt/modelforge/internal/gallery"
	"github.com/philipparndt/modelforge/internal/geometry"
	"github.com/philipparndt/modelforge/internal/objectstore"
	"github.com/philipparndt/modelforge/internal/stl"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Data.Dir = dir
	cfg.Data.DownloadDir = filepath.Join(dir, "downloads")
	cfg.Database.DSN = filepath.Join(dir, "modelforge.db")
	cfg.ObjectStore.Dir = filepath.Join(dir, "objects")
	return cfg
}

func TestNewWithoutOptionalServices(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), nil)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	assert.Nil(t, a.KV)
	assert.Nil(t, a.Billing)
	assert.Nil(t, a.Tokens)
	assert.IsType(t, &objectstore.FSStore{}, a.Objects)

	svc := a.ServerServices()
	assert.Equal(t, "local", svc.LocalUser.ID)
	assert.Nil(t, svc.Tokens)

	models, err := a.Gallery.List(context.Background(), a.User().ID)
	require.NoError(t, err)
	assert.Len(t, models, len(gallery.Catalog()))
}

func TestNewWithRedisAndAuth(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Addr = mr.Addr()
	cfg.Auth.JWTSecret = "secret"

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })
	require.NotNil(t, a.KV)
	require.NotNil(t, a.Tokens)

	ctx := context.Background()
	reply, err := a.Chat.Submit(ctx, "u1", "make it red")
	require.NoError(t, err)
	assert.Equal(t, "color", reply.Entry.Instruction.Op.Name())
	assert.True(t, mr.Exists("chat:u1:history"))

	require.NoError(t, a.Accounts.SetTier(ctx, "pro", account.TierPremium))
	var buf bytes.Buffer
	require.NoError(t, stl.NewWriter().EncodeBinary(&buf, geometry.Box(5, 5, 5)))
	m, err := a.Gallery.Import(ctx, "pro", gallery.Upload{Filename: "cube.stl", Data: buf.Bytes()})
	require.NoError(t, err)
	assert.NotEmpty(t, m.FileKey)

	objects, err := a.Objects.List(ctx, objectstore.UserPrefix("pro"))
	require.NoError(t, err)
	assert.Len(t, objects, 1)
}

func TestNewFailsOnUnreachableRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.Redis.Addr = "127.0.0.1:1"

	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}
