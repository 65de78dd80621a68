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

package service

import (
	"context"
	"errors"
	"fmt"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"strings"
	"sync"
	"watchme-go/model"
)

const (
	CredentialModeStatic   = "static"
	CredentialModeDatabase = "database"
)

type CredentialCfg struct {
	Mode        string   `ini:"mode"`
	StaticUsers []string `ini:"static_users"`
}

// CredentialVerifier checks an email and password pair.
// A mismatch is (false, nil); err is reserved for failures of the verifier itself.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (bool, error)
}

type StaticCredential struct {
	Email        string
	PasswordHash string
}

// ParseStaticUsers parses "email:bcrypt-hash" entries.
func ParseStaticUsers(entries []string) ([]StaticCredential, error) {
	credentials := make([]StaticCredential, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		email, hash, ok := strings.Cut(entry, ":")
		if !ok || email == "" || hash == "" || strings.Contains(hash, ":") {
			return nil, fmt.Errorf("invalid static user entry %q, expected email:hash", email)
		}
		credential := StaticCredential{
			Email:        strings.TrimSpace(email),
			PasswordHash: strings.TrimSpace(hash),
		}
		credentials = append(credentials, credential)
	}
	return credentials, nil
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// compareDummy spends the same bcrypt work as a real comparison so that
// unknown emails are not distinguishable by response time.
func compareDummy(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("watchme-dummy-password"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

func comparePassword(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}

type staticCredentialVerifier struct {
	hashes map[string]string
}

func NewStaticCredentialVerifier(credentials []StaticCredential) (CredentialVerifier, error) {
	hashes := make(map[string]string, len(credentials))
	for _, credential := range credentials {
		if _, err := bcrypt.Cost([]byte(credential.PasswordHash)); err != nil {
			return nil, fmt.Errorf("static user %s has an invalid bcrypt hash: %w", credential.Email, err)
		}
		hashes[model.NormalizeEmail(credential.Email)] = credential.PasswordHash
	}
	verifier := staticCredentialVerifier{
		hashes: hashes,
	}
	return &verifier, nil
}

func (v *staticCredentialVerifier) Verify(ctx context.Context, email, password string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	hash, ok := v.hashes[model.NormalizeEmail(email)]
	if !ok {
		compareDummy(password)
		return false, nil
	}
	return comparePassword(hash, password)
}

type databaseCredentialVerifier struct {
	db *gorm.DB
}

func NewDatabaseCredentialVerifier(db *gorm.DB) (CredentialVerifier, error) {
	if err := db.AutoMigrate(&model.User{}); err != nil {
		return nil, err
	}
	verifier := databaseCredentialVerifier{
		db: db,
	}
	return &verifier, nil
}

func (v *databaseCredentialVerifier) Verify(ctx context.Context, email, password string) (bool, error) {
	user := model.User{}
	err := v.db.WithContext(ctx).Where("email = ?", model.NormalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		compareDummy(password)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return comparePassword(user.Password, password)
}
