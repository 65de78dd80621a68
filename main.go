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

package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gopkg.in/ini.v1"
	"gorm.io/gorm"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"watchme-go/dto"
	"watchme-go/model"
	"watchme-go/router"
	"watchme-go/service"
	"watchme-go/storage"
	"watchme-go/util"
)

type MetaCfg struct {
	ServerName            string `ini:"server_name"`
	ImplementationVersion string `ini:"implementation_version"`
}

type ServerCfg struct {
	ServerAddress  string   `ini:"server_address"`
	TrustedProxies []string `ini:"trusted_proxies"`
	AllowedOrigins []string `ini:"allowed_origins"`
}

type appConfig struct {
	meta        MetaCfg
	server      ServerCfg
	session     service.SessionConfig
	store       storage.StoreCfg
	database    util.DbCfg
	redis       storage.RedisCfg
	credentials service.CredentialCfg
	catalog     *util.CatalogConfig
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	configFilePath := "config.ini"
	cfg, err := ini.LooseLoad(configFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("无法读取配置文件")
	}
	logCfg := util.LogCfg{
		Level:  "info",
		Pretty: true,
	}
	if err := cfg.Section("log").MapTo(&logCfg); err != nil {
		log.Fatal().Err(err).Msg("无法读取配置文件")
	}
	util.InitLogger(logCfg)

	config, err := loadConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("无法读取配置文件")
	}
	_, err = os.Stat(configFilePath)
	if err != nil && os.IsNotExist(err) {
		log.Info().Str("path", configFilePath).Msg("配置文件不存在，已使用默认配置")
		_ = cfg.Section("meta").ReflectFrom(&config.meta)
		_ = cfg.Section("server").ReflectFrom(&config.server)
		_ = cfg.Section("session").ReflectFrom(&config.session)
		_ = cfg.Section("store").ReflectFrom(&config.store)
		_ = cfg.Section("database").ReflectFrom(&config.database)
		_ = cfg.Section("redis").ReflectFrom(&config.redis)
		_ = cfg.Section("credentials").ReflectFrom(&config.credentials)
		_ = cfg.Section("catalog").ReflectFrom(config.catalog)
		_ = cfg.Section("log").ReflectFrom(&logCfg)
		err = cfg.SaveToIndent(configFilePath, " ")
		if err != nil {
			log.Warn().Err(err).Msg("无法保存配置文件")
		}
	}
	// the secret never goes back into config.ini
	if key := os.Getenv("ENCRYPTION_KEY"); key != "" {
		config.store.EncryptionKey = key
	}
	if key := os.Getenv("CATALOG_API_KEY"); key != "" {
		config.catalog.ApiKey = key
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, config); err != nil {
		stop()
		log.Fatal().Err(err).Msg("异常退出")
	}
	log.Info().Msg("退出")
}

func loadConfig(cfg *ini.File) (*appConfig, error) {
	config := appConfig{
		meta: MetaCfg{
			ServerName:            "WatchMe",
			ImplementationVersion: "v0.0.1",
		},
		server: ServerCfg{
			ServerAddress:  "127.0.0.1:8080",
			TrustedProxies: []string{"127.0.0.0/8"},
			AllowedOrigins: []string{"http://localhost:8081"},
		},
		session: service.SessionConfig{
			Timeout:       model.DefaultSessionTimeout,
			CheckInterval: model.DefaultCheckInterval,
		},
		store: storage.StoreCfg{
			StoreType:      storage.StoreTypeDatabase,
			MaxItems:       storage.DefaultMaxItems,
			EncryptionSalt: util.DefaultEncryptionSalt,
			KdfIterations:  util.DefaultKdfIterations,
		},
		database: util.DbCfg{
			DatabaseDriver: "sqlite",
			DatabaseDsn:    "file:watchme.db?cache=shared",
		},
		redis: storage.RedisCfg{
			Addr:   "localhost:6379",
			Prefix: storage.DefaultRedisPrefix,
		},
		credentials: service.CredentialCfg{
			Mode: service.CredentialModeStatic,
		},
	}
	sections := map[string]any{
		"meta":        &config.meta,
		"server":      &config.server,
		"session":     &config.session,
		"store":       &config.store,
		"database":    &config.database,
		"redis":       &config.redis,
		"credentials": &config.credentials,
	}
	for name, target := range sections {
		if err := cfg.Section(name).MapTo(target); err != nil {
			return nil, fmt.Errorf("section [%s] is invalid: %w", name, err)
		}
	}
	for _, origin := range config.server.AllowedOrigins {
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return nil, fmt.Errorf("section [server] has invalid allowed_origins entry %q", origin)
		}
	}
	catalog, err := util.ParseCatalogConfig(cfg)
	if err != nil {
		return nil, err
	}
	config.catalog = catalog
	return &config, nil
}

func needsDatabase(config *appConfig) bool {
	return config.store.StoreType == storage.StoreTypeDatabase ||
		config.credentials.Mode == service.CredentialModeDatabase
}

func createVerifier(config *appConfig, db *gorm.DB) (service.CredentialVerifier, service.UserService, error) {
	switch config.credentials.Mode {
	case service.CredentialModeStatic:
		credentials, err := service.ParseStaticUsers(config.credentials.StaticUsers)
		if err != nil {
			return nil, nil, err
		}
		if len(credentials) == 0 {
			log.Warn().Msg("no static users configured, nobody can log in")
		}
		verifier, err := service.NewStaticCredentialVerifier(credentials)
		return verifier, nil, err
	case service.CredentialModeDatabase:
		verifier, err := service.NewDatabaseCredentialVerifier(db)
		if err != nil {
			return nil, nil, err
		}
		userService, err := service.NewUserService(db)
		return verifier, userService, err
	default:
		return nil, nil, fmt.Errorf("invalid credential mode: %q", config.credentials.Mode)
	}
}

// run owns every resource it opens and releases them before returning.
func run(ctx context.Context, config *appConfig) error {
	var db *gorm.DB
	if needsDatabase(config) {
		var err error
		db, err = util.OpenDatabase(config.database)
		if err != nil {
			return fmt.Errorf("无法连接数据库: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		defer sqlDB.Close()
	}

	cipher, err := util.NewCipher(config.store.EncryptionKey, []byte(config.store.EncryptionSalt), config.store.KdfIterations)
	if err != nil {
		return fmt.Errorf("encryption key unusable, set ENCRYPTION_KEY: %w", err)
	}
	backend, err := storage.CreateBackend(ctx, config.store, db, config.redis)
	if err != nil {
		return fmt.Errorf("无法创建存储: %w", err)
	}
	store := storage.NewSecureStore(backend, cipher)
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close store")
		}
	}()

	verifier, userService, err := createVerifier(config, db)
	if err != nil {
		return err
	}
	sessionService := service.NewSessionService(store, verifier, config.session)
	if err := sessionService.Start(ctx); err != nil {
		return err
	}
	defer sessionService.Stop()

	catalogService := service.NewCatalogService(config.catalog, &http.Client{})
	meta := dto.ServerMeta{
		Name:                  config.meta.ServerName,
		ImplementationVersion: config.meta.ImplementationVersion,
		RegistrationEnabled:   userService != nil,
		SessionTimeoutMs:      sessionService.Timeout().Milliseconds(),
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), router.RequestLogger())
	if err := r.SetTrustedProxies(config.server.TrustedProxies); err != nil {
		return err
	}
	router.InitRouters(r, &meta, config.server.AllowedOrigins, sessionService, userService, catalogService)

	g, gctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Addr:              config.server.ServerAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// ends event streams on shutdown
		BaseContext: func(net.Listener) context.Context { return gctx },
	}
	g.Go(func() error {
		log.Info().
			Str("address", srv.Addr).
			Str("store", config.store.StoreType).
			Str("credentials", config.credentials.Mode).
			Dur("timeout", sessionService.Timeout()).
			Msg("已启动")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("关闭...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
