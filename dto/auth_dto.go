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

package dto

// Authentication and session DTOs
// These structures are used for HTTP request/response in the session endpoints

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegRequest represents a user registration request
type RegRequest struct {
	Email           string `json:"email" binding:"required"`
	Username        string `json:"username" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// SessionStatusResponse is the isAuthenticated signal as seen by the navigation layer
type SessionStatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	State         string `json:"state"`
}

// UserResponse represents a registered user
type UserResponse struct {
	Id       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// ServerMeta is returned by the home endpoint
type ServerMeta struct {
	Name                  string `json:"name"`
	ImplementationVersion string `json:"implementationVersion"`
	RegistrationEnabled   bool   `json:"registrationEnabled"`
	SessionTimeoutMs      int64  `json:"sessionTimeoutMs"`
}
