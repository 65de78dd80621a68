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

package util

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	htmlTagRegex      = regexp.MustCompile(`<[^>]*>`)
	unsafeCharRegex   = regexp.MustCompile(`[&<>"']`)
	emailRegex        = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRegex        = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	lowerRegex        = regexp.MustCompile(`[a-z]`)
	upperRegex        = regexp.MustCompile(`[A-Z]`)
	digitRegex        = regexp.MustCompile(`\d`)
	specialCharRegex  = regexp.MustCompile(`[@$!%*?&]`)
	minPasswordLength = 8
)

type ValidationResult struct {
	IsValid bool   `json:"isValid"`
	Error   string `json:"error,omitempty"`
}

type LoginFormErrors struct {
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

func valid() ValidationResult {
	return ValidationResult{IsValid: true}
}

func invalid(msg string) ValidationResult {
	return ValidationResult{Error: msg}
}

// SanitizeInput strips HTML tags and the characters & < > " ' then trims spaces.
func SanitizeInput(input string) string {
	input = htmlTagRegex.ReplaceAllString(input, "")
	input = unsafeCharRegex.ReplaceAllString(input, "")
	return strings.TrimSpace(input)
}

func ValidateEmail(email string) ValidationResult {
	sanitized := SanitizeInput(email)
	if sanitized == "" {
		return invalid("Email is required")
	}
	if !emailRegex.MatchString(sanitized) {
		return invalid("Invalid email format")
	}
	return valid()
}

// ValidatePassword requires at least 8 characters with a lowercase letter,
// an uppercase letter, a digit and one of @$!%*?&.
func ValidatePassword(password string) ValidationResult {
	if password == "" {
		return invalid("Password is required")
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return invalid("Password must be at least 8 characters long")
	}
	if !lowerRegex.MatchString(password) || !upperRegex.MatchString(password) ||
		!digitRegex.MatchString(password) || !specialCharRegex.MatchString(password) {
		return invalid("Password must contain an uppercase letter, a lowercase letter, a digit and a special character")
	}
	return valid()
}

func ValidatePhoneNumber(phone string) ValidationResult {
	if !phoneRegex.MatchString(phone) {
		return invalid("Invalid phone number")
	}
	return valid()
}

func ValidateUsername(username string) ValidationResult {
	n := utf8.RuneCountInString(SanitizeInput(username))
	if n < 3 || n > 30 {
		return invalid("Username must be between 3 and 30 characters")
	}
	return valid()
}

func ValidateLoginForm(email, password string) (bool, LoginFormErrors) {
	errs := LoginFormErrors{}
	ok := true
	if r := ValidateEmail(email); !r.IsValid {
		errs.Email = r.Error
		ok = false
	}
	if r := ValidatePassword(password); !r.IsValid {
		errs.Password = r.Error
		ok = false
	}
	return ok, errs
}
