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
	"encoding/json"
	"github.com/rs/zerolog/log"
	"net/http"
	"strconv"
	"strings"
	"time"
	"watchme-go/util"
)

// CatalogService forwards catalog requests to the third-party movie API.
// Responses are passed through untouched.
type CatalogService interface {
	Popular(ctx context.Context, page int) (json.RawMessage, error)
	Search(ctx context.Context, query string, page int) (json.RawMessage, error)
	Detail(ctx context.Context, id string) (json.RawMessage, error)
}

type catalogServiceImpl struct {
	config util.CatalogConfig
	client *http.Client
}

func NewCatalogService(config *util.CatalogConfig, client *http.Client) CatalogService {
	if client == nil {
		client = http.DefaultClient
	}
	catalogService := catalogServiceImpl{
		config: *config,
		client: client,
	}
	return &catalogService
}

func (c *catalogServiceImpl) Popular(ctx context.Context, page int) (json.RawMessage, error) {
	return c.fetch(ctx, c.config.PopularURL, map[string]string{
		"page": strconv.Itoa(normalizePage(page)),
	})
}

func (c *catalogServiceImpl) Search(ctx context.Context, query string, page int) (json.RawMessage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, util.NewIllegalArgumentError("query is required")
	}
	return c.fetch(ctx, c.config.SearchURL, map[string]string{
		"query": query,
		"page":  strconv.Itoa(normalizePage(page)),
	})
}

func (c *catalogServiceImpl) Detail(ctx context.Context, id string) (json.RawMessage, error) {
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return nil, util.NewIllegalArgumentError("invalid movie id")
	}
	return c.fetch(ctx, c.config.DetailURL, map[string]string{
		"id": id,
	})
}

func (c *catalogServiceImpl) fetch(ctx context.Context, template string, params map[string]string) (json.RawMessage, error) {
	params["api_key"] = c.config.ApiKey
	target := util.ReplaceURLPlaceholders(template, params)
	timeout := time.Duration(c.config.Timeout) * time.Millisecond
	resp, err := util.DoHTTPRequestWithContext(ctx, c.client, http.MethodGet, target, nil, timeout)
	if err != nil {
		log.Warn().Err(err).Msg("catalog request failed")
		return nil, util.NewUpstreamError(http.StatusBadGateway, err)
	}
	log.Debug().Int("status", resp.StatusCode).Dur("duration", resp.Duration).Msg("catalog request")
	if resp.StatusCode == http.StatusNotFound {
		return nil, util.NewNotFoundError("No such movie.")
	}
	if !resp.IsSuccess {
		return nil, util.NewUpstreamError(resp.StatusCode, resp.Error)
	}
	if !json.Valid(resp.Body) {
		return nil, util.NewUpstreamError(http.StatusBadGateway, nil)
	}
	return resp.Body, nil
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
