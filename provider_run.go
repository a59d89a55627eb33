package dbmigration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dbmigration/dbmigration/database"
	"go.uber.org/multierr"
)

// inTx runs fn in a new transaction, after making sure the tracking table exists. The transaction
// is committed only if fn succeeds.
func (p *Provider) inTx(ctx context.Context, fn func(tx database.Tx) error) (retErr error) {
	tx, err := p.exec.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	p.logger.DebugContext(ctx, "transaction started")
	defer func() {
		if retErr != nil {
			// A cancelled context already rolled the transaction back.
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				retErr = multierr.Append(retErr, fmt.Errorf("failed to rollback transaction: %w", err))
			}
		}
	}()
	if err := p.store.CreateVersionTable(ctx, tx); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	p.logger.DebugContext(ctx, "transaction committed")
	return nil
}

func (p *Provider) loadApplied(ctx context.Context, tx database.Tx, group string) (*Collection, error) {
	rows, err := p.store.ListMigrations(ctx, tx, group)
	if err != nil {
		return nil, err
	}
	changeSets := make([]*ChangeSet, 0, len(rows))
	for _, row := range rows {
		changeSets = append(changeSets, &ChangeSet{
			Name:    VersionedName{Version: row.Version, Name: row.Name},
			UpSQL:   row.UpSQL,
			DownSQL: row.DownSQL,
		})
	}
	return NewCollection(group, changeSets), nil
}

func (p *Provider) migrate(ctx context.Context, local *Collection, n int) ([]*Result, error) {
	if local == nil {
		return nil, errors.New("collection must not be nil")
	}
	var results []*Result
	err := p.inTx(ctx, func(tx database.Tx) error {
		var err error
		results, err = p.apply(ctx, tx, local, n)
		return err
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// apply runs the first n pending change sets of local, or all of them when n is negative.
func (p *Provider) apply(ctx context.Context, tx database.Tx, local *Collection, n int) ([]*Result, error) {
	applied, err := p.loadApplied(ctx, tx, local.Group())
	if err != nil {
		return nil, err
	}
	plan, err := local.Diff(applied)
	if err != nil {
		return nil, fmt.Errorf("group %q: %w", local.Group(), err)
	}
	if n >= 0 {
		if plan, err = plan.Subset(0, n); err != nil {
			return nil, err
		}
	}
	results := make([]*Result, 0, plan.Len())
	for _, cs := range plan.changeSets {
		start := time.Now()
		if err := tx.BatchExecContext(ctx, cs.UpSQL); err != nil {
			return nil, fmt.Errorf("failed to apply %s of group %q: %w", cs, local.Group(), err)
		}
		if err := p.store.Insert(ctx, tx, database.InsertRequest{
			Group:   local.Group(),
			Version: cs.Name.Version,
			Name:    cs.Name.Name,
			UpSQL:   cs.UpSQL,
			DownSQL: cs.DownSQL,
		}); err != nil {
			return nil, err
		}
		result := &Result{
			Group:     local.Group(),
			ChangeSet: cs.Name,
			Direction: DirectionUp,
			Duration:  time.Since(start),
			Empty:     isBlank(cs.UpSQL),
		}
		p.logResult(ctx, result)
		results = append(results, result)
	}
	return results, nil
}

func (p *Provider) rollback(ctx context.Context, group string, n int) ([]*Result, error) {
	var results []*Result
	err := p.inTx(ctx, func(tx database.Tx) error {
		var err error
		results, err = p.revert(ctx, tx, group, n)
		return err
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// revert reverts the n most recent change sets of group, or all of them when n is negative.
func (p *Provider) revert(ctx context.Context, tx database.Tx, group string, n int) ([]*Result, error) {
	applied, err := p.loadApplied(ctx, tx, group)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		n = applied.Len()
	}
	if n > applied.Len() {
		return nil, fmt.Errorf("%w: requested %d, group %q has %d applied",
			ErrNoChangeSetsToRevert, n, group, applied.Len())
	}
	results := make([]*Result, 0, n)
	for i := applied.Len() - 1; i >= applied.Len()-n; i-- {
		cs := applied.At(i)
		start := time.Now()
		if err := p.store.Delete(ctx, tx, group, cs.Name.Version); err != nil {
			return nil, err
		}
		if cs.DownSQL != nil {
			if err := tx.BatchExecContext(ctx, *cs.DownSQL); err != nil {
				return nil, fmt.Errorf("failed to revert %s of group %q: %w", cs, group, err)
			}
		}
		result := &Result{
			Group:     group,
			ChangeSet: cs.Name,
			Direction: DirectionDown,
			Duration:  time.Since(start),
			Empty:     cs.DownSQL == nil || isBlank(*cs.DownSQL),
		}
		p.logResult(ctx, result)
		results = append(results, result)
	}
	return results, nil
}

func (p *Provider) updateRollbackSQL(ctx context.Context, tx database.Tx, local *Collection) ([]VersionedName, error) {
	group := local.Group()
	applied, err := p.loadApplied(ctx, tx, group)
	if err != nil {
		return nil, err
	}
	// Validate every position before touching a single row.
	n := min(local.Len(), applied.Len())
	for i := 0; i < n; i++ {
		l, a := local.At(i), applied.At(i)
		if l.Name.Version != a.Name.Version {
			return nil, fmt.Errorf("group %q: %w", group,
				&VersionMismatchError{Local: l.Name.Version, Applied: a.Name.Version})
		}
		if l.Name.Name != a.Name.Name {
			return nil, fmt.Errorf("group %q: %w", group,
				&InconsistentHistoryError{Reason: ReasonNameMismatch, Version: l.Name.Version})
		}
	}
	var updated []VersionedName
	for i := 0; i < n; i++ {
		l, a := local.At(i), applied.At(i)
		if sameDownSQL(l.DownSQL, a.DownSQL) {
			continue
		}
		if err := p.store.UpdateDownSQL(ctx, tx, group, l.Name.Version, l.DownSQL); err != nil {
			return nil, err
		}
		p.logger.InfoContext(ctx, "updated rollback SQL",
			slog.String("group", group),
			slog.Int("version", int(l.Name.Version)),
			slog.String("name", l.Name.Name),
			slog.Bool("reversible", l.DownSQL != nil),
		)
		updated = append(updated, l.Name)
	}
	return updated, nil
}

func (p *Provider) logResult(ctx context.Context, r *Result) {
	msg := "applied change set"
	if r.Direction == DirectionDown {
		msg = "reverted change set"
	}
	p.logger.InfoContext(ctx, msg,
		slog.String("group", r.Group),
		slog.Int("version", int(r.ChangeSet.Version)),
		slog.String("name", r.ChangeSet.Name),
		slog.Duration("duration", r.Duration),
		slog.Bool("empty", r.Empty),
	)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
