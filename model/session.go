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
	"strconv"
	"time"
)

// Persisted keys of the session in the secure store.
const (
	TokenKey        = "auth_token"
	LastActivityKey = "last_activity"
)

const (
	DefaultSessionTimeout = 30 * time.Minute
	DefaultCheckInterval  = time.Minute
)

type SessionState uint

const (
	Unauthenticated SessionState = iota
	Authenticated
)

func (s SessionState) String() string {
	switch s {
	case Authenticated:
		return "AUTHENTICATED"
	default:
		return "UNAUTHENTICATED"
	}
}

func StateOf(authenticated bool) SessionState {
	if authenticated {
		return Authenticated
	}
	return Unauthenticated
}

type Session struct {
	Token        string
	LastActivity int64 // milliseconds since epoch
}

func NewSession(token string, now time.Time) Session {
	return Session{
		Token:        token,
		LastActivity: now.UnixMilli(),
	}
}

func (s Session) Elapsed(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(s.LastActivity))
}

// ElapsedMillis is now - LastActivity in whole milliseconds.
func (s Session) ElapsedMillis(now time.Time) int64 {
	return now.UnixMilli() - s.LastActivity
}

// HasExpired reports whether more than timeout passed since the last activity.
// The comparison is in milliseconds, the unit LastActivity is stored in, so an
// elapsed time of exactly timeout is still valid.
func (s Session) HasExpired(now time.Time, timeout time.Duration) bool {
	return s.ElapsedMillis(now) > timeout.Milliseconds()
}

// FormatTimestamp renders ms as the decimal string stored under LastActivityKey.
func FormatTimestamp(ms int64) string {
	return strconv.FormatInt(ms, 10)
}

func ParseTimestamp(value string) (int64, error) {
	return strconv.ParseInt(value, 10, 64)
}
