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
	"encoding/json"
	"github.com/rs/zerolog/log"
	"sort"
	"watchme-go/util"
)

// Backend persists already-encrypted values. Put and Delete are all-or-nothing.
type Backend interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Put(ctx context.Context, items map[string]string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// SecureStore is an encrypted-at-rest key-value store.
//
// Values are JSON encoded then encrypted. GetItem reports undecryptable or
// undecodable data as absent. Backend failures surface as util.ErrStorageRead
// or util.ErrStorageWrite.
type SecureStore interface {
	SetItem(ctx context.Context, key string, value any) error
	GetItem(ctx context.Context, key string, out any) (bool, error)
	RemoveItem(ctx context.Context, key string) error
	SetItems(ctx context.Context, items map[string]any) error
	RemoveItems(ctx context.Context, keys ...string) error
	Close() error
}

type secureStoreImpl struct {
	backend Backend
	cipher  *util.Cipher
}

func NewSecureStore(backend Backend, cipher *util.Cipher) SecureStore {
	store := secureStoreImpl{
		backend: backend,
		cipher:  cipher,
	}
	return &store
}

func (s *secureStoreImpl) SetItem(ctx context.Context, key string, value any) error {
	return s.SetItems(ctx, map[string]any{key: value})
}

func (s *secureStoreImpl) SetItems(ctx context.Context, items map[string]any) error {
	if len(items) == 0 {
		return nil
	}
	encrypted := make(map[string]string, len(items))
	for key, value := range items {
		data, err := json.Marshal(value)
		if err != nil {
			return util.NewStorageWriteError(err)
		}
		sealed, err := s.cipher.Encrypt(data)
		if err != nil {
			return util.NewStorageWriteError(err)
		}
		encrypted[key] = sealed
	}
	if err := s.backend.Put(ctx, encrypted); err != nil {
		log.Error().Err(err).Strs("keys", sortedKeys(items)).Msg("secure store write failed")
		return util.NewStorageWriteError(err)
	}
	return nil
}

func (s *secureStoreImpl) GetItem(ctx context.Context, key string, out any) (bool, error) {
	sealed, found, err := s.backend.Get(ctx, key)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("secure store read failed")
		return false, util.NewStorageReadError(err)
	}
	if !found || sealed == "" {
		return false, nil
	}
	data, err := s.cipher.Decrypt(sealed)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("undecryptable value treated as absent")
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("undecodable value treated as absent")
		return false, nil
	}
	return true, nil
}

func (s *secureStoreImpl) RemoveItem(ctx context.Context, key string) error {
	return s.RemoveItems(ctx, key)
}

func (s *secureStoreImpl) RemoveItems(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.backend.Delete(ctx, keys...); err != nil {
		log.Error().Err(err).Strs("keys", keys).Msg("secure store remove failed")
		return util.NewStorageWriteError(err)
	}
	return nil
}

func (s *secureStoreImpl) Close() error {
	return s.backend.Close()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
