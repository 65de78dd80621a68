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
	"fmt"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"sort"
	"strings"
)

type DbCfg struct {
	DatabaseDriver string `ini:"database_driver"`
	DatabaseDsn    string `ini:"database_dsn"`
}

var DbDriverDialectors = map[string]func(dsn string) gorm.Dialector{
	"sqlite":   sqlite.Open,
	"mysql":    mysql.Open,
	"postgres": postgres.Open,
}

func GetDialector(cfg DbCfg) (gorm.Dialector, error) {
	if driver, ok := DbDriverDialectors[cfg.DatabaseDriver]; ok {
		return driver(cfg.DatabaseDsn), nil
	}
	keys := make([]string, 0, len(DbDriverDialectors))
	for k := range DbDriverDialectors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return nil, fmt.Errorf("unknown driver: %s, supported: %s", cfg.DatabaseDriver, strings.Join(keys, ","))
}

// OpenDatabase opens cfg and caps the pool at one connection for sqlite,
// which keeps :memory: databases shared across queries.
func OpenDatabase(cfg DbCfg) (*gorm.DB, error) {
	dialector, err := GetDialector(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseDriver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}
