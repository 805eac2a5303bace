package app

import (
	"context"
	"fmt"
	"time"

	"challenge-reward-system/catalog"
	"challenge-reward-system/config"
	"challenge-reward-system/connectors"
	"challenge-reward-system/persistence"
	"challenge-reward-system/stores"
	"challenge-reward-system/utils"
	"challenge-reward-system/verifiers"
	"challenge-reward-system/workers"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ClientModule provides the client-side stores and their collaborators.
var ClientModule = fx.Module("client",
	fx.Provide(
		NewPersistence,
		NewClient,
	),
	fx.Invoke(func(cfg *config.Config) error { return cfg.ValidateClient() }),
)

// storageKeyInfo scopes the derived key to this use.
const storageKeyInfo = "challenger/secure-storage/v1"

// NewPersistence opens the configured backend. Everything but the memory
// backend is encrypted with a key derived from storage.master_key.
func NewPersistence(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (persistence.Persistence, error) {
	sc := cfg.Storage
	var inner persistence.Persistence
	switch sc.Backend {
	case "memory":
		logger.Warn("⚠️ memory storage: sessions will not survive a restart")
		return persistence.NewMemoryStore(), nil
	case "file":
		fs, err := persistence.NewFileStore(sc.Dir)
		if err != nil {
			return nil, err
		}
		inner = fs
	case "gorm":
		db, err := utils.OpenDB(sc.Driver, sc.DatabaseURL)
		if err != nil {
			return nil, err
		}
		gs, err := persistence.NewGormStore(db)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}})
		inner = gs
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     sc.RedisAddr,
			Password: sc.RedisPassword,
			DB:       sc.RedisDB,
		})
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := client.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("redis ping failed: %w", err)
				}
				return nil
			},
			OnStop: func(ctx context.Context) error { return client.Close() },
		})
		inner = persistence.NewRedisStore(client, sc.RedisPrefix, sc.RedisTTL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", sc.Backend)
	}

	key, err := persistence.DeriveKey([]byte(sc.MasterKey), storageKeyInfo)
	if err != nil {
		return nil, err
	}
	return persistence.NewEncryptedStore(inner, key)
}

// Client bundles what the CLI works with. HTTP, Stats and CatalogSync are
// nil in mock mode; Uploader is nil unless R2 is configured.
type Client struct {
	Config   *config.Config
	Logger   *zap.Logger
	Session  *stores.SessionStore
	Progress *stores.ProgressStore
	Catalog  catalog.Catalog

	HTTP        *connectors.HTTPConnector
	Stats       *workers.StatsSyncWorker
	CatalogSync *workers.CatalogSyncWorker
	Uploader    *utils.R2Uploader
}

func NewClient(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger, persist persistence.Persistence) (*Client, error) {
	cc := cfg.Client
	c := &Client{Config: cfg, Logger: logger}

	var (
		connector connectors.Connector
		verifier  verifiers.Verifier
	)
	switch cc.Mode {
	case config.ModeHTTP:
		httpClient := utils.NewHTTPClient(cc.HTTPTimeout)
		var wallet connectors.WalletSigner
		if cc.WalletSeed != "" {
			kw, err := connectors.NewKeyWallet(cc.WalletSeed)
			if err != nil {
				return nil, err
			}
			wallet = kw
		}
		c.HTTP = connectors.NewHTTPConnector(cc.APIBaseURL, httpClient, wallet, nil)
		connector = c.HTTP

		cached := catalog.NewCached(catalog.NewHTTPCatalog(cc.APIBaseURL, httpClient))
		c.Catalog = cached
		c.CatalogSync = workers.NewCatalogSyncWorker(cached, cc.CatalogRefresh, logger)

		c.Session = stores.NewSessionStore(persist, connector, logger)
		verifier = verifiers.NewHTTPVerifier(cc.APIBaseURL, httpClient, c.Session)
		c.Stats = workers.NewStatsSyncWorker(cc.APIBaseURL, httpClient, c.Session, logger)
	default:
		mock := connectors.NewMockConnector(cc.MockDelay)
		mock.WalletAddress = cc.MockWalletAddress
		connector = mock
		verifier = verifiers.NewMockVerifier(cc.MockSuccessRate, cc.MockDelay, uint64(time.Now().UnixNano()))
		c.Catalog = catalog.NewSeeded()
		c.Session = stores.NewSessionStore(persist, connector, logger)
	}
	c.Progress = stores.NewProgressStore(persist, c.Catalog, verifier, logger)

	if cfg.R2.Enabled() {
		up, err := utils.NewR2Uploader(context.Background(), utils.R2Config{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			AccessKeySecret: cfg.R2.AccessKeySecret,
			Bucket:          cfg.R2.Bucket,
			Endpoint:        cfg.R2.Endpoint,
			PublicBaseURL:   cfg.R2.PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		c.Uploader = up
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			c.Restore(ctx)
			return nil
		},
	})
	return c, nil
}

// Restore loads the stored session and binds progress to it.
func (c *Client) Restore(ctx context.Context) stores.AuthState {
	state := c.Session.Initialize(ctx)
	if c.HTTP != nil {
		c.HTTP.UseToken(c.Session.Token())
	}
	stores.Sync(ctx, stores.AuthSnapshot{State: state, Identity: c.Session.Identity()}, c.Progress)
	return state
}
