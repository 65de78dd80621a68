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
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"time"
	"watchme-go/model"
)

var keyColumn = clause.Column{Name: "key"}

// DatabaseBackend stores values in the secure_items table.
type DatabaseBackend struct {
	db *gorm.DB
}

func NewDatabaseBackend(db *gorm.DB) (*DatabaseBackend, error) {
	if db == nil {
		return nil, errors.New("database backend requires a database connection")
	}
	if err := db.AutoMigrate(&model.SecureItem{}); err != nil {
		return nil, err
	}
	return &DatabaseBackend{db: db}, nil
}

func (d *DatabaseBackend) Get(ctx context.Context, key string) (string, bool, error) {
	item := model.SecureItem{}
	err := d.db.WithContext(ctx).Where(clause.Eq{Column: keyColumn, Value: key}).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return item.Value, true, nil
}

func (d *DatabaseBackend) Put(ctx context.Context, items map[string]string) error {
	if len(items) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]model.SecureItem, 0, len(items))
	for _, key := range sortedKeys(items) {
		rows = append(rows, model.SecureItem{Key: key, Value: items[key], UpdatedAt: now})
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{keyColumn},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&rows).Error
	})
}

func (d *DatabaseBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	values := make([]interface{}, len(keys))
	for i, key := range keys {
		values[i] = key
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Where(clause.IN{Column: keyColumn, Values: values}).Delete(&model.SecureItem{}).Error
	})
}

// Close is a no-op, the connection is shared with the credential store.
func (d *DatabaseBackend) Close() error {
	return nil
}
