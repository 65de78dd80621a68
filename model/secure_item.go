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

package model

import "time"

// SecureItem is a row of the database backend. Value is always ciphertext.
type SecureItem struct {
	Key       string `gorm:"column:key;size:128;primaryKey"`
	Value     string `gorm:"column:value;type:TEXT"`
	UpdatedAt time.Time
}

func (SecureItem) TableName() string {
	return "secure_items"
}
