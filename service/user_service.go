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

package service

import (
	"context"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
	"watchme-go/dto"
	"watchme-go/model"
	"watchme-go/util"
)

type UserService interface {
	Register(ctx context.Context, request dto.RegRequest, ip string) (*dto.UserResponse, error)
}

type userServiceImpl struct {
	db            *gorm.DB
	limitLruCache *lru.Cache
}

func NewUserService(db *gorm.DB) (UserService, error) {
	if err := db.AutoMigrate(&model.User{}); err != nil {
		return nil, err
	}
	cache, _ := lru.New(10000)
	userService := userServiceImpl{
		db:            db,
		limitLruCache: cache,
	}
	return &userService, nil
}

func (u *userServiceImpl) Register(ctx context.Context, request dto.RegRequest, ip string) (*dto.UserResponse, error) {
	if !u.allowIp(ip) {
		return nil, util.NewTooManyRequestsError()
	}
	if r := util.ValidateUsername(request.Username); !r.IsValid {
		return nil, util.NewIllegalArgumentError(r.Error)
	}
	if r := util.ValidateEmail(request.Email); !r.IsValid {
		return nil, util.NewIllegalArgumentError(r.Error)
	}
	if r := util.ValidatePassword(request.Password); !r.IsValid {
		return nil, util.NewIllegalArgumentError(r.Error)
	}
	if request.Password != request.ConfirmPassword {
		return nil, util.NewIllegalArgumentError("Passwords do not match")
	}

	email := model.NormalizeEmail(util.SanitizeInput(request.Email))
	var count int64
	if err := u.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, util.NewForbiddenOperationError("email exist")
	}
	hashedPass, err := HashPassword(request.Password)
	if err != nil {
		return nil, err
	}
	user := model.User{
		ID:       uuid.New(),
		Email:    email,
		Username: util.SanitizeInput(request.Username),
		Password: hashedPass,
		Role:     model.RoleUser,
	}
	if err := u.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	log.Info().Str("user", user.ID.String()).Msg("user registered")
	response := user.ToResponse()
	return &response, nil
}

func (u *userServiceImpl) allowIp(ip string) bool {
	if value, ok := u.limitLruCache.Get(ip); ok {
		if limiter, ok := value.(*rate.Limiter); ok {
			return limiter.Allow()
		}
		u.limitLruCache.Remove(ip)
	}
	limiter := rate.NewLimiter(0.2, 3)
	u.limitLruCache.Add(ip, limiter)
	return limiter.Allow()
}
