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
	"fmt"
	lru "github.com/hashicorp/golang-lru"
	"sync"
)

const (
	DefaultMaxItems = 128
	// MinMaxItems keeps the session pair from evicting itself.
	MinMaxItems = 2
)

// MemoryBackend keeps values for the process lifetime only.
type MemoryBackend struct {
	mu       sync.Mutex
	cache    *lru.Cache
	maxItems int
}

// NewMemoryBackend uses DefaultMaxItems when maxItems <= 0.
func NewMemoryBackend(maxItems int) (*MemoryBackend, error) {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	if maxItems < MinMaxItems {
		return nil, fmt.Errorf("max_items must be at least %d, got %d", MinMaxItems, maxItems)
	}
	cache, err := lru.New(maxItems)
	if err != nil {
		return nil, err
	}
	return &MemoryBackend{cache: cache, maxItems: maxItems}, nil
}

func (m *MemoryBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if value, ok := m.cache.Get(key); ok {
		if s, ok := value.(string); ok {
			return s, true, nil
		}
		m.cache.Remove(key)
	}
	return "", false, nil
}

func (m *MemoryBackend) Put(ctx context.Context, items map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// a batch larger than the cache would evict part of itself
	if len(items) > m.maxItems {
		return fmt.Errorf("batch of %d items exceeds capacity %d", len(items), m.maxItems)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, value := range items {
		m.cache.Add(key, value)
	}
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		m.cache.Remove(key)
	}
	return nil
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Purge()
	return nil
}
