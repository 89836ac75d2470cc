// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/traylinx/integrationhub/internal/config"
	"github.com/traylinx/integrationhub/internal/util"
)

// Open builds the backend selected by cfg.Store.Type.
func Open(ctx context.Context, cfg config.StoreConfig, sb *util.StateBox) (Store, error) {
	switch cfg.Type {
	case config.StoreMemory:
		return NewMemoryStore(), nil
	case config.StoreFile, "":
		return NewFileStore(sb)
	case config.StoreSQLite:
		if sb == nil {
			return nil, fmt.Errorf("StateBox cannot be nil")
		}
		path := sb.ResolvePath(cfg.Path)
		if err := sb.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, fmt.Errorf("failed to prepare sqlite directory: %w", err)
		}
		return OpenSQLite(ctx, path, cfg.Table)
	case config.StorePostgres:
		return OpenPostgres(ctx, cfg.DSN, cfg.Table)
	case config.StoreRedis:
		return OpenRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Namespace)
	case config.StoreObject:
		return OpenObjectStore(ctx, ObjectStoreConfig{
			Endpoint:  cfg.Object.Endpoint,
			Bucket:    cfg.Object.Bucket,
			AccessKey: cfg.Object.AccessKey,
			SecretKey: cfg.Object.SecretKey,
			Region:    cfg.Object.Region,
			UseSSL:    cfg.Object.UseSSL,
			Prefix:    cfg.Object.Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}
