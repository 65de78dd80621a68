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
	"gorm.io/gorm"
)

const (
	StoreTypeMemory   = "memory"
	StoreTypeDatabase = "database"
	StoreTypeRedis    = "redis"
)

type StoreCfg struct {
	StoreType      string `ini:"store_type"`
	MaxItems       int    `ini:"max_items"`
	EncryptionKey  string `ini:"encryption_key"`
	EncryptionSalt string `ini:"encryption_salt"`
	KdfIterations  int    `ini:"kdf_iterations"`
}

// CreateBackend builds the backend named by cfg.StoreType.
// db is only used by the database backend and may be nil otherwise.
func CreateBackend(ctx context.Context, cfg StoreCfg, db *gorm.DB, redisCfg RedisCfg) (Backend, error) {
	switch cfg.StoreType {
	case StoreTypeMemory:
		return NewMemoryBackend(cfg.MaxItems)
	case StoreTypeDatabase:
		return NewDatabaseBackend(db)
	case StoreTypeRedis:
		return NewRedisBackend(ctx, redisCfg)
	default:
		return nil, fmt.Errorf("invalid store type: %q", cfg.StoreType)
	}
}
