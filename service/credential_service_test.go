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
	"testing"
	"watchme-go/model"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	return string(hash)
}

func TestParseStaticUsers(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
		want    []StaticCredential
		wantErr bool
	}{
		{
			name:    "email and hash",
			entries: []string{"user@example.com:$2a$04$abc"},
			want:    []StaticCredential{{Email: "user@example.com", PasswordHash: "$2a$04$abc"}},
		},
		{
			name:    "blank entries skipped",
			entries: []string{"  ", "other@example.com:$2a$04$abc "},
			want:    []StaticCredential{{Email: "other@example.com", PasswordHash: "$2a$04$abc"}},
		},
		{name: "extra field", entries: []string{"admin@example.com:$2a$04$abc:admin"}, wantErr: true},
		{name: "missing hash", entries: []string{"user@example.com"}, wantErr: true},
		{name: "empty hash", entries: []string{"user@example.com:"}, wantErr: true},
		{name: "too many fields", entries: []string{"a:b:c:d"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStaticUsers(tt.entries)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStaticUsers() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseStaticUsers() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("entry %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestStaticCredentialVerifier(t *testing.T) {
	verifier, err := NewStaticCredentialVerifier([]StaticCredential{
		{Email: "User@Example.com", PasswordHash: mustHash(t, "User123!")},
		{Email: "admin@example.com", PasswordHash: mustHash(t, "Admin123!")},
	})
	if err != nil {
		t.Fatalf("Failed to create verifier: %v", err)
	}
	tests := []struct {
		email    string
		password string
		want     bool
	}{
		{"user@example.com", "User123!", true},
		{" USER@example.com", "User123!", true},
		{"admin@example.com", "Admin123!", true},
		{"user@example.com", "Admin123!", false},
		{"nobody@example.com", "User123!", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := verifier.Verify(context.Background(), tt.email, tt.password)
		if err != nil {
			t.Errorf("Verify(%q) error: %v", tt.email, err)
		}
		if got != tt.want {
			t.Errorf("Verify(%q, %q) = %v, want %v", tt.email, tt.password, got, tt.want)
		}
	}
}

func TestStaticCredentialVerifierRejectsPlainPassword(t *testing.T) {
	_, err := NewStaticCredentialVerifier([]StaticCredential{{Email: "user@example.com", PasswordHash: "User123!"}})
	if err == nil {
		t.Error("Expected error for a non-bcrypt hash")
	}
}

func TestStaticCredentialVerifierCancelled(t *testing.T) {
	verifier, err := NewStaticCredentialVerifier(nil)
	if err != nil {
		t.Fatalf("Failed to create verifier: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := verifier.Verify(ctx, "user@example.com", "x"); err == nil {
		t.Error("Expected error for a cancelled context")
	}
}

func TestDatabaseCredentialVerifier(t *testing.T) {
	db := openTestDB(t)
	verifier, err := NewDatabaseCredentialVerifier(db)
	if err != nil {
		t.Fatalf("Failed to create verifier: %v", err)
	}
	user := model.User{
		ID:       uuid.New(),
		Email:    "stored@example.com",
		Username: "stored",
		Password: mustHash(t, "Stored123!"),
		Role:     model.RoleUser,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	ok, err := verifier.Verify(context.Background(), "Stored@example.com", "Stored123!")
	if err != nil || !ok {
		t.Errorf("Expected match, got ok=%v err=%v", ok, err)
	}
	ok, err = verifier.Verify(context.Background(), "stored@example.com", "wrong")
	if err != nil || ok {
		t.Errorf("Expected mismatch, got ok=%v err=%v", ok, err)
	}
	ok, err = verifier.Verify(context.Background(), "missing@example.com", "Stored123!")
	if err != nil || ok {
		t.Errorf("Expected unknown email to mismatch, got ok=%v err=%v", ok, err)
	}

	sqlDB, _ := db.DB()
	_ = sqlDB.Close()
	if _, err := verifier.Verify(context.Background(), "stored@example.com", "Stored123!"); err == nil {
		t.Error("Expected error once the database is closed")
	}
}
