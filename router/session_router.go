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
	"io"
	"net/http"
	"watchme-go/dto"
	"watchme-go/model"
	"watchme-go/service"
	"watchme-go/util"
)

type SessionRouter interface {
	Login(c *gin.Context)
	Logout(c *gin.Context)
	Status(c *gin.Context)
	Events(c *gin.Context)
}

type sessionRouterImpl struct {
	sessionService service.SessionService
}

func NewSessionRouter(sessionService service.SessionService) SessionRouter {
	sessionRouter := sessionRouterImpl{
		sessionService: sessionService,
	}
	return &sessionRouter
}

func statusOf(authenticated bool) dto.SessionStatusResponse {
	return dto.SessionStatusResponse{
		Authenticated: authenticated,
		State:         model.StateOf(authenticated).String(),
	}
}

func (s *sessionRouterImpl) Login(c *gin.Context) {
	request := dto.LoginRequest{}
	err := c.ShouldBindJSON(&request)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, util.NewIllegalArgumentError(err.Error()))
		return
	}
	err = s.sessionService.Login(c.Request.Context(), request.Email, request.Password)
	if err != nil {
		util.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, statusOf(true))
}

func (s *sessionRouterImpl) Logout(c *gin.Context) {
	err := s.sessionService.Logout(c.Request.Context())
	if err != nil {
		util.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, statusOf(false))
}

// Status re-validates the stored session before answering.
func (s *sessionRouterImpl) Status(c *gin.Context) {
	c.JSON(http.StatusOK, statusOf(s.sessionService.CheckSession(c.Request.Context())))
}

// Events streams the authenticated flag as server-sent events until the client leaves.
func (s *sessionRouterImpl) Events(c *gin.Context) {
	ch, unsubscribe := s.sessionService.Subscribe()
	defer unsubscribe()
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case authenticated, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("session", statusOf(authenticated))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// RequireSession rejects the request unless the stored session is still valid.
// A successful check counts as activity. A check cut short by a done request
// context answers with the cached flag, so it never admits the request.
func RequireSession(sessionService service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		authenticated := sessionService.CheckSession(ctx)
		if ctx.Err() != nil || !authenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, util.AppError{
				ErrorCode:    "UnauthorizedOperationException",
				ErrorMessage: util.MessageNotAuthenticated,
			})
			return
		}
		c.Next()
	}
}

// RequireJSON rejects bodies that are not declared as JSON. Browsers send
// text/plain cross-origin without a preflight; application/json always needs one.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.ContentType() != gin.MIMEJSON {
			c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, util.AppError{
				ErrorCode:    "UnsupportedMediaTypeException",
				ErrorMessage: "Content-Type must be " + gin.MIMEJSON,
			})
			return
		}
		c.Next()
	}
}
