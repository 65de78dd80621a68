/*
 * Copyright (C) 2022-2025. Gardel <sunxinao@hotmail.com> and contributors
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

import (
	"github.com/google/uuid"
	"strings"
	"time"
	"watchme-go/dto"
)

const RoleUser = "user"

type User struct {
	ID        uuid.UUID `gorm:"column:id;type:string;size:36;primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Email     string `gorm:"size:64;uniqueIndex:email_idx"`
	Username  string `gorm:"size:30"`
	Password  string `gorm:"size:255"`
	Role      string `gorm:"size:16;default:user"`
}

// NormalizeEmail is the lookup form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) ToResponse() dto.UserResponse {
	return dto.UserResponse{
		Id:       u.ID.String(),
		Email:    u.Email,
		Username: u.Username,
		Role:     u.Role,
	}
}
