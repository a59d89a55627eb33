package cli

import (
	"context"
	"fmt"

	"github.com/dbmigration/dbmigration"
	"golang.org/x/sync/errgroup"
)

// loadConfigFromState loads the config file named by --config, DBMIGRATION_CONFIG or the default
// dbmigration.json. Only the default is allowed to be missing.
func loadConfigFromState(st *state) (*config, error) {
	path, required := st.flags.config, true
	if path == "" {
		path, _ = st.env.Get(envConfig)
	}
	if path == "" {
		path, required = defaultConfigFile, false
	}
	return loadConfig(path, required)
}

func newProvider(st *state, cfg *config) (*dbmigration.Provider, error) {
	dbURL, err := resolveDatabaseURL(st.flags.url, st.env, cfg)
	if err != nil {
		return nil, err
	}
	db, dialect, err := st.openConnection(dbURL)
	if err != nil {
		return nil, err
	}
	opts := []dbmigration.ProviderOption{
		dbmigration.WithLogger(st.logger),
	}
	table := st.flags.table
	if table == "" {
		table, _ = st.env.Get(envTable)
	}
	if table != "" {
		opts = append(opts, dbmigration.WithTableName(table))
	}
	p, err := dbmigration.NewProvider(dialect, db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

// loadCollections loads the change sets of the given groups concurrently and returns them in the
// same order.
func loadCollections(ctx context.Context, st *state, groups []changeSetConfig) ([]*dbmigration.Collection, error) {
	collections := make([]*dbmigration.Collection, len(groups))
	g, ctx := errgroup.WithContext(ctx)
	for i, cs := range groups {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fsys, err := st.fsys(cs.Directory)
			if err != nil {
				return fmt.Errorf("group %q: %w", cs.GroupName, err)
			}
			c, err := dbmigration.LoadFS(cs.GroupName, fsys, ".")
			if err != nil {
				return fmt.Errorf("group %q: %w", cs.GroupName, err)
			}
			collections[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return collections, nil
}

// setup loads the config, the change sets of the selected groups and opens a provider.
func setup(ctx context.Context, st *state, filter string) (*dbmigration.Provider, []*dbmigration.Collection, error) {
	cfg, err := loadConfigFromState(st)
	if err != nil {
		return nil, nil, err
	}
	groups, err := cfg.groups(filter)
	if err != nil {
		return nil, nil, err
	}
	collections, err := loadCollections(ctx, st, groups)
	if err != nil {
		return nil, nil, err
	}
	p, err := newProvider(st, cfg)
	if err != nil {
		return nil, nil, err
	}
	return p, collections, nil
}
