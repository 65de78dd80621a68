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
	"net/http"
	"net/http/httptest"
	"testing"
	"watchme-go/util"
)

func newTestCatalog(t *testing.T, handler http.HandlerFunc) CatalogService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	config := &util.CatalogConfig{
		PopularURL: server.URL + "/movie/popular?api_key={api_key}&page={page}",
		SearchURL:  server.URL + "/search/movie?api_key={api_key}&query={query}&page={page}",
		DetailURL:  server.URL + "/movie/{id}?api_key={api_key}",
		ApiKey:     "test-key",
		Timeout:    2000,
	}
	return NewCatalogService(config, server.Client())
}

func TestCatalogPopular(t *testing.T) {
	catalog := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/popular" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Errorf("api key not forwarded: %s", r.URL.RawQuery)
		}
		if r.URL.Query().Get("page") != "1" {
			t.Errorf("expected page 1, got %s", r.URL.Query().Get("page"))
		}
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":550,"title":"Fight Club"}]}`))
	})
	body, err := catalog.Popular(context.Background(), 0)
	if err != nil {
		t.Fatalf("Popular failed: %v", err)
	}
	if string(body) != `{"page":1,"results":[{"id":550,"title":"Fight Club"}]}` {
		t.Errorf("body not passed through: %s", body)
	}
}

func TestCatalogSearch(t *testing.T) {
	catalog := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("query"); got != "star wars & co" {
			t.Errorf("query not escaped correctly: %q", got)
		}
		if got := r.URL.Query().Get("page"); got != "3" {
			t.Errorf("expected page 3, got %s", got)
		}
		_, _ = w.Write([]byte(`{"results":[]}`))
	})
	if _, err := catalog.Search(context.Background(), "  star wars & co ", 3); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if _, err := catalog.Search(context.Background(), "   ", 1); !errors.Is(err, util.ErrIllegalArgument) {
		t.Errorf("Expected illegal argument for empty query, got %v", err)
	}
}

func TestCatalogDetail(t *testing.T) {
	catalog := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/movie/550":
			_, _ = w.Write([]byte(`{"id":550}`))
		case "/movie/1":
			w.WriteHeader(http.StatusInternalServerError)
		case "/movie/2":
			_, _ = w.Write([]byte(`<html>maintenance</html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	body, err := catalog.Detail(ctx, "550")
	if err != nil || string(body) != `{"id":550}` {
		t.Errorf("Detail(550) = %s, %v", body, err)
	}

	tests := []struct {
		id     string
		kind   error
		status int
	}{
		{id: "abc", kind: util.ErrIllegalArgument, status: http.StatusBadRequest},
		{id: "../popular", kind: util.ErrIllegalArgument, status: http.StatusBadRequest},
		{id: "404", kind: util.ErrUpstreamResponse, status: http.StatusNotFound},
		{id: "1", kind: util.ErrUpstreamResponse, status: http.StatusBadGateway},
		{id: "2", kind: util.ErrUpstreamResponse, status: http.StatusBadGateway},
	}
	for _, tt := range tests {
		_, err := catalog.Detail(ctx, tt.id)
		if !errors.Is(err, tt.kind) {
			t.Errorf("Detail(%q) error = %v, want kind %v", tt.id, err, tt.kind)
			continue
		}
		var appErr util.AppError
		if !errors.As(err, &appErr) || appErr.Status != tt.status {
			t.Errorf("Detail(%q) status = %d, want %d", tt.id, appErr.Status, tt.status)
		}
	}
}

func TestCatalogUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	catalog := NewCatalogService(&util.CatalogConfig{
		PopularURL: url + "/movie/popular?page={page}",
		Timeout:    500,
	}, nil)
	_, err := catalog.Popular(context.Background(), 1)
	if !errors.Is(err, util.ErrUpstreamResponse) {
		t.Errorf("Expected upstream error, got %v", err)
	}
}
