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
	"errors"
	"fmt"
	"gopkg.in/ini.v1"
	"net/url"
	"strings"
)

// Default catalog configuration, TMDB v3 layout
const (
	DefaultCatalogPopularURL = "https://api.themoviedb.org/3/movie/popular?api_key={api_key}&language=en-US&page={page}"
	DefaultCatalogSearchURL  = "https://api.themoviedb.org/3/search/movie?api_key={api_key}&language=en-US&query={query}&page={page}"
	DefaultCatalogDetailURL  = "https://api.themoviedb.org/3/movie/{id}?api_key={api_key}&language=en-US&append_to_response=credits"
	DefaultCatalogTimeout    = 10000
)

// CatalogConfig represents the [catalog] section
type CatalogConfig struct {
	PopularURL string `ini:"popular_url"` // supports {api_key}, {page}
	SearchURL  string `ini:"search_url"`  // supports {api_key}, {query}, {page}
	DetailURL  string `ini:"detail_url"`  // supports {api_key}, {id}
	ApiKey     string `ini:"api_key"`
	Timeout    int    `ini:"timeout"` // milliseconds
}

// ParseCatalogConfig reads the [catalog] section.
// A missing section yields the TMDB defaults; an existing section is validated.
func ParseCatalogConfig(cfg *ini.File) (*CatalogConfig, error) {
	if cfg == nil {
		return nil, errors.New("config file is nil")
	}
	catalogConfig := &CatalogConfig{
		PopularURL: DefaultCatalogPopularURL,
		SearchURL:  DefaultCatalogSearchURL,
		DetailURL:  DefaultCatalogDetailURL,
		Timeout:    DefaultCatalogTimeout,
	}
	if !cfg.HasSection("catalog") {
		return catalogConfig, nil
	}
	if err := cfg.Section("catalog").MapTo(catalogConfig); err != nil {
		return nil, fmt.Errorf("section [catalog] is invalid: %w", err)
	}
	if err := ValidateURLTemplate(catalogConfig.PopularURL); err != nil {
		return nil, fmt.Errorf("section [catalog] has invalid %s: %w", "popular_url", err)
	}
	if err := ValidateURLTemplate(catalogConfig.SearchURL); err != nil {
		return nil, fmt.Errorf("section [catalog] has invalid %s: %w", "search_url", err)
	}
	if err := ValidateURLTemplate(catalogConfig.DetailURL); err != nil {
		return nil, fmt.Errorf("section [catalog] has invalid %s: %w", "detail_url", err)
	}
	if catalogConfig.Timeout < 1 {
		return nil, fmt.Errorf("section [catalog] has invalid %s: %s", "timeout", "Must be greater than 0")
	}
	return catalogConfig, nil
}

// ReplaceURLPlaceholders replaces {name} placeholders in template with escaped values.
// Placeholders in the query string are query-escaped, the others path-escaped.
func ReplaceURLPlaceholders(template string, params map[string]string) string {
	queryStart := strings.IndexByte(template, '?')
	if queryStart == -1 {
		queryStart = len(template)
	}
	path, query := template[:queryStart], template[queryStart:]
	for key, value := range params {
		placeholder := "{" + key + "}"
		path = strings.ReplaceAll(path, placeholder, url.PathEscape(value))
		query = strings.ReplaceAll(query, placeholder, url.QueryEscape(value))
	}
	return path + query
}

// ValidateURLTemplate validates URL template format
func ValidateURLTemplate(template string) error {
	if !strings.HasPrefix(template, "http://") && !strings.HasPrefix(template, "https://") {
		return errors.New("URL must start with http:// or https://")
	}
	openCount := strings.Count(template, "{")
	closeCount := strings.Count(template, "}")
	if openCount != closeCount {
		return errors.New("unbalanced placeholders in URL template")
	}
	return nil
}
