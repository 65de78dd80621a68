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

package util

import (
	"errors"
	"github.com/gin-gonic/gin"
	"net/http"
)

var MessageInvalidCredentials = "Invalid credentials. Invalid email or password."
var MessageStorageUnavailable = "Session storage is unavailable."
var MessageNotAuthenticated = "Not authenticated."
var MessageTooManyRequests = "Too many requests."

var (
	ErrAuthentication   = errors.New("authentication failed")
	ErrStorageRead      = errors.New("storage read failed")
	ErrStorageWrite     = errors.New("storage write failed")
	ErrIllegalArgument  = errors.New("illegal argument")
	ErrForbidden        = errors.New("forbidden operation")
	ErrTooManyRequests  = errors.New("too many requests")
	ErrUpstreamResponse = errors.New("upstream request failed")
)

type AppError struct {
	ErrorCode    string `json:"error"`
	ErrorMessage string `json:"errorMessage"`
	Cause        string `json:"cause,omitempty"`
	Status       int    `json:"-"`
	kind         error
	err          error
}

func (e AppError) Error() string {
	if e.err != nil {
		return e.ErrorMessage + ": " + e.err.Error()
	}
	return e.ErrorMessage
}

// Unwrap exposes both the error kind and the underlying cause to errors.Is / errors.As.
func (e AppError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.kind != nil {
		errs = append(errs, e.kind)
	}
	if e.err != nil {
		errs = append(errs, e.err)
	}
	return errs
}

func NewAuthenticationError() (err AppError) {
	err.ErrorCode = "AuthenticationException"
	err.Status = http.StatusUnauthorized
	err.ErrorMessage = MessageInvalidCredentials
	err.kind = ErrAuthentication
	return err
}

func NewStorageReadError(cause error) (err AppError) {
	err.ErrorCode = "StorageReadException"
	err.Status = http.StatusServiceUnavailable
	err.ErrorMessage = MessageStorageUnavailable
	err.kind = ErrStorageRead
	err.err = cause
	return err
}

func NewStorageWriteError(cause error) (err AppError) {
	err.ErrorCode = "StorageWriteException"
	err.Status = http.StatusServiceUnavailable
	err.ErrorMessage = MessageStorageUnavailable
	err.kind = ErrStorageWrite
	err.err = cause
	return err
}

func NewIllegalArgumentError(msg string) (err AppError) {
	err.ErrorCode = "IllegalArgumentException"
	err.Status = http.StatusBadRequest
	err.ErrorMessage = msg
	err.kind = ErrIllegalArgument
	return err
}

func NewForbiddenOperationError(msg string) (err AppError) {
	err.ErrorCode = "ForbiddenOperationException"
	err.Status = http.StatusForbidden
	err.ErrorMessage = msg
	err.kind = ErrForbidden
	return err
}

func NewTooManyRequestsError() (err AppError) {
	err.ErrorCode = "ForbiddenOperationException"
	err.Status = http.StatusTooManyRequests
	err.ErrorMessage = MessageTooManyRequests
	err.kind = ErrTooManyRequests
	return err
}

func NewNotFoundError(msg string) (err AppError) {
	err.ErrorCode = "NotFoundException"
	err.Status = http.StatusNotFound
	err.ErrorMessage = msg
	err.kind = ErrUpstreamResponse
	return err
}

func NewUpstreamError(status int, cause error) (err AppError) {
	err.ErrorCode = "UpstreamException"
	err.Status = http.StatusBadGateway
	err.ErrorMessage = http.StatusText(status)
	if err.ErrorMessage == "" {
		err.ErrorMessage = "Upstream unavailable"
	}
	err.kind = ErrUpstreamResponse
	err.err = cause
	return err
}

// HandleError writes err as JSON. Causes are never echoed to the client.
func HandleError(c *gin.Context, err error) {
	var x AppError
	if errors.As(err, &x) {
		if x.Status == 0 {
			x.Status = http.StatusForbidden
		}
		if x.Status == http.StatusNoContent {
			c.Status(x.Status)
		} else {
			c.AbortWithStatusJSON(x.Status, x)
		}
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, AppError{
		ErrorCode:    "InternalException",
		ErrorMessage: http.StatusText(http.StatusInternalServerError),
	})
}
