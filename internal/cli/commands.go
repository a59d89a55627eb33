package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dbmigration/dbmigration"
	"go.uber.org/multierr"
)

// Groups are processed one at a time, each in its own transaction. The first failing group stops
// the command; groups processed before it stay committed.

func execMigrate(ctx context.Context, st *state, args []string) (retErr error) {
	if len(args) > 2 {
		return fmt.Errorf("too many arguments, usage: %s", usageMigrate)
	}
	var (
		group string
		count int
	)
	if len(args) > 0 {
		group = args[0]
	}
	if len(args) > 1 {
		n, err := parseCount(args[1])
		if err != nil {
			return err
		}
		count = n
	}
	p, collections, err := setup(ctx, st, group)
	if err != nil {
		return err
	}
	defer func() { retErr = multierr.Append(retErr, p.Close()) }()

	start := time.Now()
	var all []*dbmigration.Result
	for _, c := range collections {
		var results []*dbmigration.Result
		if count > 0 {
			results, err = p.MigrateN(ctx, c, count)
		} else {
			results, err = p.Migrate(ctx, c)
		}
		if err != nil {
			err = fmt.Errorf("group %q: %w", c.Group(), err)
			break
		}
		all = append(all, results...)
	}
	return printResults(st, all, err, time.Since(start))
}

func execRollback(ctx context.Context, st *state, args []string) (retErr error) {
	if len(args) != 2 {
		return fmt.Errorf("group and count are required, usage: %s", usageRollback)
	}
	group := args[0]
	count := -1
	if args[1] != "all" {
		n, err := parseCount(args[1])
		if err != nil {
			return err
		}
		count = n
	}
	// Rolling back only needs the recorded history, not the local files.
	cfg, err := loadConfigFromState(st)
	if err != nil {
		return err
	}
	p, err := newProvider(st, cfg)
	if err != nil {
		return err
	}
	defer func() { retErr = multierr.Append(retErr, p.Close()) }()

	start := time.Now()
	var results []*dbmigration.Result
	if count > 0 {
		results, err = p.RollbackN(ctx, group, count)
	} else {
		results, err = p.Rollback(ctx, group)
	}
	if err != nil {
		err = fmt.Errorf("group %q: %w", group, err)
	}
	return printResults(st, results, err, time.Since(start))
}

func execRedo(ctx context.Context, st *state, args []string) (retErr error) {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("group is required, usage: %s", usageRedo)
	}
	count := 1
	if len(args) > 1 {
		n, err := parseCount(args[1])
		if err != nil {
			return err
		}
		count = n
	}
	p, collections, err := setup(ctx, st, args[0])
	if err != nil {
		return err
	}
	defer func() { retErr = multierr.Append(retErr, p.Close()) }()

	start := time.Now()
	results, err := p.Redo(ctx, collections[0], count)
	if err != nil {
		err = fmt.Errorf("group %q: %w", args[0], err)
	}
	return printResults(st, results, err, time.Since(start))
}

func execUpdateRollbackSQL(ctx context.Context, st *state, args []string) (retErr error) {
	if len(args) > 1 {
		return fmt.Errorf("too many arguments, usage: %s", usageUpdateRollbackSQL)
	}
	var group string
	if len(args) > 0 {
		group = args[0]
	}
	p, collections, err := setup(ctx, st, group)
	if err != nil {
		return err
	}
	defer func() { retErr = multierr.Append(retErr, p.Close()) }()

	var updated []updatedOutput
	for _, c := range collections {
		names, err := p.UpdateRollbackSQL(ctx, c)
		if err != nil {
			return multierr.Append(
				fmt.Errorf("group %q: %w", c.Group(), err),
				printUpdated(st, updated),
			)
		}
		for _, name := range names {
			updated = append(updated, updatedOutput{
				Group:   c.Group(),
				Version: name.Version,
				Name:    name.Name,
			})
		}
	}
	return printUpdated(st, updated)
}

func execStatus(ctx context.Context, st *state, args []string) (retErr error) {
	if len(args) > 1 {
		return fmt.Errorf("too many arguments, usage: %s", usageStatus)
	}
	var group string
	if len(args) > 0 {
		group = args[0]
	}
	p, collections, err := setup(ctx, st, group)
	if err != nil {
		return err
	}
	defer func() { retErr = multierr.Append(retErr, p.Close()) }()

	var statuses []*dbmigration.ChangeSetStatus
	for _, c := range collections {
		s, err := p.Status(ctx, c)
		if err != nil {
			return fmt.Errorf("group %q: %w", c.Group(), err)
		}
		statuses = append(statuses, s...)
	}
	return printStatus(st, statuses)
}

func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q: %w", s, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("count must be at least 1, got %d", n)
	}
	return n, nil
}
