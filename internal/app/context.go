package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"staffdesk/internal/config"
	"staffdesk/internal/db"
	"staffdesk/internal/engine"
	"staffdesk/internal/migrate"
	"staffdesk/internal/repo"
)

// Context bundles an open database and resolved config for one command
// invocation. Close releases the database handle.
type Context struct {
	Workspace string
	DB        *sql.DB
	Config    *config.Config
	Engine    engine.Engine
}

func (c *Context) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

// Open prepares the workspace, runs migrations, and resolves the
// effective config. Resolution order: staffdesk.yml in the workspace,
// then the config stored in the database, then a generated default that
// is seeded into the database so later runs agree.
func Open(ctx context.Context, workspace, workspaceName string) (*Context, error) {
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	r := repo.Repo{DB: conn}
	cfg, err := resolveConfig(ctx, workspace, workspaceName, r)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Context{
		Workspace: workspace,
		DB:        conn,
		Config:    cfg,
		Engine:    engine.New(conn, cfg),
	}, nil
}

func resolveConfig(ctx context.Context, workspace, workspaceName string, r repo.Repo) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		return cfg, nil
	}
	cfg, err = r.GetAppConfig(ctx)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if workspaceName == "" {
		workspaceName = "staffdesk"
	}
	seed := config.GenerateDefault(workspaceName)
	if err := r.UpsertAppConfig(ctx, seed); err != nil {
		return nil, fmt.Errorf("seed config: %w", err)
	}
	return config.FromYAML([]byte(seed))
}
