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
	"encoding/json"
	"github.com/gin-gonic/gin"
	"net/http"
	"strconv"
	"watchme-go/service"
	"watchme-go/util"
)

type CatalogRouter interface {
	Popular(c *gin.Context)
	Search(c *gin.Context)
	Detail(c *gin.Context)
}

type catalogRouterImpl struct {
	catalogService service.CatalogService
}

func NewCatalogRouter(catalogService service.CatalogService) CatalogRouter {
	catalogRouter := catalogRouterImpl{catalogService: catalogService}
	return &catalogRouter
}

func pageParam(c *gin.Context) (int, error) {
	raw := c.DefaultQuery("page", "1")
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, util.NewIllegalArgumentError("Invalid page.")
	}
	return page, nil
}

func writeRaw(c *gin.Context, body json.RawMessage) {
	c.Header("Cache-Control", "private, max-age=60")
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (r *catalogRouterImpl) Popular(c *gin.Context) {
	page, err := pageParam(c)
	if err != nil {
		util.HandleError(c, err)
		return
	}
	response, err := r.catalogService.Popular(c.Request.Context(), page)
	if err != nil {
		util.HandleError(c, err)
		return
	}
	writeRaw(c, response)
}

func (r *catalogRouterImpl) Search(c *gin.Context) {
	page, err := pageParam(c)
	if err != nil {
		util.HandleError(c, err)
		return
	}
	response, err := r.catalogService.Search(c.Request.Context(), c.Query("query"), page)
	if err != nil {
		util.HandleError(c, err)
		return
	}
	writeRaw(c, response)
}

func (r *catalogRouterImpl) Detail(c *gin.Context) {
	response, err := r.catalogService.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		util.HandleError(c, err)
		return
	}
	writeRaw(c, response)
}
