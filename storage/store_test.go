/*
 * Copyright (C) 2025. Gardel <sunxinao@hotmail.com> and contributors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"watchme-go/util"
)

func newTestCipher(t *testing.T, secret string) *util.Cipher {
	t.Helper()
	c, err := util.NewCipher(secret, []byte(util.DefaultEncryptionSalt), 1000)
	require.NoError(t, err)
	return c
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

const testRedisPrefix = "test:secure:"

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisBackend) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	backend := NewRedisBackendWithClient(client, testRedisPrefix)
	t.Cleanup(func() { _ = backend.Close() })
	return server, backend
}

// backends returns one fresh backend per implementation, redis running in process.
func backends(t *testing.T) map[string]Backend {
	t.Helper()
	memory, err := NewMemoryBackend(0)
	require.NoError(t, err)
	database, err := NewDatabaseBackend(newTestDB(t))
	require.NoError(t, err)
	_, redisBackend := newTestRedis(t)
	return map[string]Backend{
		"memory":   memory,
		"database": database,
		"redis":    redisBackend,
	}
}

func TestSecureStoreRoundTrip(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := NewSecureStore(backend, newTestCipher(t, "store-secret-1"))

			require.NoError(t, store.SetItem(ctx, "auth_token", "tok-123"))
			var token string
			found, err := store.GetItem(ctx, "auth_token", &token)
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, "tok-123", token)

			// overwrite goes through the upsert path
			require.NoError(t, store.SetItem(ctx, "auth_token", "tok-456"))
			found, err = store.GetItem(ctx, "auth_token", &token)
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, "tok-456", token)

			require.NoError(t, store.RemoveItem(ctx, "auth_token"))
			found, err = store.GetItem(ctx, "auth_token", &token)
			require.NoError(t, err)
			require.False(t, found)
		})
	}
}

func TestSecureStoreAbsentKey(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := NewSecureStore(backend, newTestCipher(t, "store-secret-1"))
			var value string
			found, err := store.GetItem(context.Background(), "never-set", &value)
			require.NoError(t, err)
			require.False(t, found)
			require.NoError(t, store.RemoveItem(context.Background(), "never-set"))
		})
	}
}

func TestSecureStoreBatch(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := NewSecureStore(backend, newTestCipher(t, "store-secret-1"))

			require.NoError(t, store.SetItems(ctx, map[string]any{
				"auth_token":    "tok",
				"last_activity": "1700000000000",
			}))
			var token, last string
			found, err := store.GetItem(ctx, "auth_token", &token)
			require.NoError(t, err)
			require.True(t, found)
			found, err = store.GetItem(ctx, "last_activity", &last)
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, "1700000000000", last)

			require.NoError(t, store.RemoveItems(ctx, "auth_token", "last_activity"))
			found, _ = store.GetItem(ctx, "auth_token", &token)
			require.False(t, found)
			found, _ = store.GetItem(ctx, "last_activity", &last)
			require.False(t, found)
		})
	}
}

func TestSecureStoreEncryptsAtRest(t *testing.T) {
	ctx := context.Background()
	backend, err := NewMemoryBackend(0)
	require.NoError(t, err)
	store := NewSecureStore(backend, newTestCipher(t, "store-secret-1"))
	require.NoError(t, store.SetItem(ctx, "auth_token", "plain-token-value"))

	raw, found, err := backend.Get(ctx, "auth_token")
	require.NoError(t, err)
	require.True(t, found)
	require.NotContains(t, raw, "plain-token-value")
}

func TestSecureStoreUndecryptableIsAbsent(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			writer := NewSecureStore(backend, newTestCipher(t, "store-secret-1"))
			reader := NewSecureStore(backend, newTestCipher(t, "store-secret-2"))
			require.NoError(t, writer.SetItem(ctx, "auth_token", "tok"))

			var token string
			found, err := reader.GetItem(ctx, "auth_token", &token)
			require.NoError(t, err)
			require.False(t, found)

			require.NoError(t, backend.Put(ctx, map[string]string{"last_activity": "not-encrypted"}))
			found, err = reader.GetItem(ctx, "last_activity", &token)
			require.NoError(t, err)
			require.False(t, found)
		})
	}
}

func TestSecureStoreUndecodableIsAbsent(t *testing.T) {
	ctx := context.Background()
	backend, err := NewMemoryBackend(0)
	require.NoError(t, err)
	store := NewSecureStore(backend, newTestCipher(t, "store-secret-1"))
	require.NoError(t, store.SetItem(ctx, "last_activity", map[string]int{"a": 1}))

	var last string
	found, err := store.GetItem(ctx, "last_activity", &last)
	require.NoError(t, err)
	require.False(t, found)
}

type failingBackend struct {
	err error
}

func (f failingBackend) Get(context.Context, string) (string, bool, error) {
	return "", false, f.err
}

func (f failingBackend) Put(context.Context, map[string]string) error {
	return f.err
}

func (f failingBackend) Delete(context.Context, ...string) error {
	return f.err
}

func (f failingBackend) Close() error {
	return nil
}

func TestSecureStoreErrorKinds(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("disk on fire")
	store := NewSecureStore(failingBackend{err: cause}, newTestCipher(t, "store-secret-1"))

	var value string
	_, err := store.GetItem(ctx, "auth_token", &value)
	require.ErrorIs(t, err, util.ErrStorageRead)
	require.ErrorIs(t, err, cause)

	err = store.SetItem(ctx, "auth_token", "tok")
	require.ErrorIs(t, err, util.ErrStorageWrite)
	require.ErrorIs(t, err, cause)

	err = store.RemoveItems(ctx, "auth_token", "last_activity")
	require.ErrorIs(t, err, util.ErrStorageWrite)
}

func TestSecureStoreUnencodableValue(t *testing.T) {
	backend, err := NewMemoryBackend(0)
	require.NoError(t, err)
	store := NewSecureStore(backend, newTestCipher(t, "store-secret-1"))
	err = store.SetItem(context.Background(), "bad", make(chan int))
	require.ErrorIs(t, err, util.ErrStorageWrite)
}

func TestMemoryBackendCancelledContext(t *testing.T) {
	backend, err := NewMemoryBackend(0)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = backend.Get(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, backend.Put(ctx, map[string]string{"k": "v"}), context.Canceled)
}

func TestMemoryBackendCapacity(t *testing.T) {
	_, err := NewMemoryBackend(1)
	require.Error(t, err)

	backend, err := NewMemoryBackend(MinMaxItems)
	require.NoError(t, err)
	store := NewSecureStore(backend, newTestCipher(t, "store-secret-1"))
	ctx := context.Background()
	require.NoError(t, store.SetItems(ctx, map[string]any{"auth_token": "tok", "last_activity": "1"}))
	var token, last string
	found, err := store.GetItem(ctx, "auth_token", &token)
	require.NoError(t, err)
	require.True(t, found)
	found, err = store.GetItem(ctx, "last_activity", &last)
	require.NoError(t, err)
	require.True(t, found)

	// nothing of an oversized batch may land
	err = store.SetItems(ctx, map[string]any{"a": 1, "b": 2, "c": 3})
	require.ErrorIs(t, err, util.ErrStorageWrite)
	var v int
	found, err = store.GetItem(ctx, "a", &v)
	require.NoError(t, err)
	require.False(t, found)
	found, _ = store.GetItem(ctx, "auth_token", &token)
	require.True(t, found)
}

func TestRedisBackendLayout(t *testing.T) {
	server, backend := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, backend.Put(ctx, map[string]string{
		"auth_token":    "sealed-token",
		"last_activity": "sealed-last",
	}))
	require.True(t, server.Exists(testRedisPrefix+"auth_token"))
	require.True(t, server.Exists(testRedisPrefix+"last_activity"))
	require.False(t, server.Exists("auth_token"))
	value, err := server.Get(testRedisPrefix + "auth_token")
	require.NoError(t, err)
	require.Equal(t, "sealed-token", value)

	_, found, err := backend.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, found)

	// unprefixed keys of other applications are left alone
	require.NoError(t, server.Set("auth_token", "foreign"))
	require.NoError(t, backend.Delete(ctx, "auth_token", "last_activity"))
	require.False(t, server.Exists(testRedisPrefix+"auth_token"))
	require.False(t, server.Exists(testRedisPrefix+"last_activity"))
	require.True(t, server.Exists("auth_token"))
}

func TestRedisBackendServerError(t *testing.T) {
	server, backend := newTestRedis(t)
	store := NewSecureStore(backend, newTestCipher(t, "store-secret-1"))
	ctx := context.Background()
	require.NoError(t, store.SetItem(ctx, "auth_token", "tok"))

	server.SetError("LOADING Redis is loading the dataset in memory")
	var token string
	_, err := store.GetItem(ctx, "auth_token", &token)
	require.ErrorIs(t, err, util.ErrStorageRead)
	require.ErrorIs(t, store.RemoveItems(ctx, "auth_token"), util.ErrStorageWrite)
	require.ErrorIs(t, store.SetItems(ctx, map[string]any{"auth_token": "tok2"}), util.ErrStorageWrite)

	server.SetError("")
	found, err := store.GetItem(ctx, "auth_token", &token)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "tok", token)
}

func TestRedisBackendUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	backend := NewRedisBackendWithClient(client, "")
	defer backend.Close()
	require.Equal(t, DefaultRedisPrefix+"auth_token", backend.key("auth_token"))

	store := NewSecureStore(backend, newTestCipher(t, "store-secret-1"))
	ctx := context.Background()
	var token string
	_, err := store.GetItem(ctx, "auth_token", &token)
	require.ErrorIs(t, err, util.ErrStorageRead)
	require.ErrorIs(t, store.SetItems(ctx, map[string]any{"auth_token": "tok"}), util.ErrStorageWrite)
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()

	backend, err := CreateBackend(ctx, StoreCfg{StoreType: StoreTypeMemory}, nil, RedisCfg{})
	require.NoError(t, err)
	require.IsType(t, &MemoryBackend{}, backend)

	backend, err = CreateBackend(ctx, StoreCfg{StoreType: StoreTypeDatabase}, newTestDB(t), RedisCfg{})
	require.NoError(t, err)
	require.IsType(t, &DatabaseBackend{}, backend)

	_, err = CreateBackend(ctx, StoreCfg{StoreType: StoreTypeDatabase}, nil, RedisCfg{})
	require.Error(t, err)

	_, err = CreateBackend(ctx, StoreCfg{StoreType: StoreTypeMemory, MaxItems: 1}, nil, RedisCfg{})
	require.Error(t, err)

	server := miniredis.RunT(t)
	backend, err = CreateBackend(ctx, StoreCfg{StoreType: StoreTypeRedis}, nil, RedisCfg{Addr: server.Addr()})
	require.NoError(t, err)
	require.IsType(t, &RedisBackend{}, backend)
	require.NoError(t, backend.Close())

	_, err = CreateBackend(ctx, StoreCfg{StoreType: "floppy"}, nil, RedisCfg{})
	require.Error(t, err)
}
