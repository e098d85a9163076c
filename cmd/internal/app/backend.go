package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"

	"ebauth/cmd/identity"
	"ebauth/cmd/internal/tenant"
)

// backend owns the process-wide resources behind the credential store.
type backend struct {
	store identity.Store
	pool  *pgxpool.Pool
	dyn   *dynamodb.Client

	closeOnce sync.Once
	closeErr  error
}

func (b *backend) Close() error {
	b.closeOnce.Do(func() {
		var errs []error
		if c, ok := b.store.(identity.Closer); ok {
			errs = append(errs, c.Close())
		}
		if b.pool != nil {
			b.pool.Close()
		}
		b.closeErr = errors.Join(errs...)
	})
	return b.closeErr
}

func (b *backend) dynamo(ctx context.Context, cfg Config) (*dynamodb.Client, error) {
	if b.dyn != nil {
		return b.dyn, nil
	}
	c, err := NewDynamoDBClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	b.dyn = c
	return c, nil
}

// openBackend opens the store selected by EBAUTH_STORE.
func openBackend(ctx context.Context, cfg Config, log *slog.Logger) (*backend, error) {
	b := &backend{}

	switch cfg.Store {
	case StoreMemory:
		log.Warn("store.memory", "note", "directory is lost on restart")
		b.store = identity.NewMemoryStore()

	case StorePostgres:
		pool, err := NewDBPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		st, err := identity.NewPostgresStore(pool, identity.WithSchema(cfg.DBSchema))
		if err != nil {
			pool.Close()
			return nil, err
		}
		if err := st.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		b.store, b.pool = st, pool
		log.Info("store.postgres", "schema", cfg.DBSchema)

	case StoreBadger:
		st, err := identity.OpenBadgerStore(cfg.BadgerDir)
		if err != nil {
			return nil, fmt.Errorf("badger: %w", err)
		}
		b.store = st
		log.Info("store.badger", "dir", cfg.BadgerDir)

	case StoreDynamoDB:
		client, err := b.dynamo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		st, err := identity.NewDynamoDBStore(client, cfg.IdentitiesTable)
		if err != nil {
			return nil, err
		}
		b.store = st
		log.Info("store.dynamodb", "table", cfg.IdentitiesTable, "endpoint", cfg.DynamoEndpoint)

	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	return b, nil
}

// loadService reads the service descriptor from EBAUTH_SERVICE_SOURCE.
func (b *backend) loadService(ctx context.Context, cfg Config) (tenant.Config, error) {
	switch cfg.ServiceSource {
	case SourceEnv:
		return tenant.FromEnv()
	case SourceFile:
		return tenant.LoadFile(cfg.ServiceFile, cfg.ServiceName)
	case SourceDynamoDB:
		client, err := b.dynamo(ctx, cfg)
		if err != nil {
			return tenant.Config{}, err
		}
		return tenant.LoadDynamoDB(ctx, client, cfg.ServicesTable, cfg.ServiceName)
	default:
		return tenant.Config{}, fmt.Errorf("unknown service source %q", cfg.ServiceSource)
	}
}
