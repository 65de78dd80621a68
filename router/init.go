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
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"time"
	"watchme-go/dto"
	"watchme-go/service"
)

// InitRouters registers every route. userService is nil when registration is disabled.
// Only allowedOrigins may call the API from a browser; an empty list admits none.
func InitRouters(router *gin.Engine, meta *dto.ServerMeta, allowedOrigins []string, sessionService service.SessionService, userService service.UserService, catalogService service.CatalogService) {
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "User-Agent"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowOriginFunc = func(string) bool { return false }
	}
	router.Use(cors.New(corsConfig))

	homeRouter := NewHomeRouter(meta)
	sessionRouter := NewSessionRouter(sessionService)
	catalogRouter := NewCatalogRouter(catalogService)

	router.GET("/", homeRouter.Home)
	session := router.Group("/session")
	{
		session.POST("/login", RequireJSON(), sessionRouter.Login)
		session.POST("/logout", RequireJSON(), sessionRouter.Logout)
		session.GET("/status", sessionRouter.Status)
		session.GET("/events", sessionRouter.Events)
		if userService != nil {
			userRouter := NewUserRouter(userService)
			session.POST("/register", RequireJSON(), userRouter.Register)
		}
	}
	movies := router.Group("/api/movies", RequireSession(sessionService))
	{
		movies.GET("/popular", catalogRouter.Popular)
		movies.GET("/search", catalogRouter.Search)
		movies.GET("/:id", catalogRouter.Detail)
	}
}
