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
)

type HomeRouter interface {
	Home(c *gin.Context)
}

type homeRouterImpl struct {
	serverMeta dto.ServerMeta
}

func NewHomeRouter(meta *dto.ServerMeta) HomeRouter {
	homeRouter := homeRouterImpl{
		serverMeta: *meta,
	}
	return &homeRouter
}

// Home 首页路由
func (h *homeRouterImpl) Home(c *gin.Context) {
	c.JSON(http.StatusOK, h.serverMeta)
}
