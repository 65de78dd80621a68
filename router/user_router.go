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

package router

import (
	"github.com/gin-gonic/gin"
	"net/http"
	"watchme-go/dto"
	"watchme-go/service"
	"watchme-go/util"
)

type UserRouter interface {
	Register(c *gin.Context)
}

type userRouterImpl struct {
	userService service.UserService
}

func NewUserRouter(userService service.UserService) UserRouter {
	userRouter := userRouterImpl{
		userService: userService,
	}
	return &userRouter
}

func (u *userRouterImpl) Register(c *gin.Context) {
	request := dto.RegRequest{}
	err := c.ShouldBindJSON(&request)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, util.NewIllegalArgumentError(err.Error()))
		return
	}
	response, err := u.userService.Register(c.Request.Context(), request, c.ClientIP())
	if err != nil {
		util.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}
