package dbmigration

import (
	"context"
	"errors"
	"slices"

	"github.com/dbmigration/dbmigration/database"
)

// State represents the state of a change set.
type State string

const (
	// StateApplied is a change set recorded in the tracking table that matches its local file.
	StateApplied State = "applied"
	// StatePending is a local change set that has not been applied.
	StatePending State = "pending"
	// StateDiverged is an applied change set whose local definition no longer matches the recorded
	// one.
	StateDiverged State = "diverged"
	// StateUntracked is a change set recorded in the tracking table but missing locally.
	StateUntracked State = "untracked"
)

// ChangeSetStatus is the status of a single change set.
type ChangeSetStatus struct {
	Group     string
	ChangeSet VersionedName
	State     State
	// Reason explains a diverged state, for example "up SQL mismatch".
	Reason     string
	Reversible bool
}

// Status compares local with the applied history of its group and reports the state of every
// change set known to either side, ordered by version.
//
// Unlike [Provider.Migrate], Status never fails on an inconsistent history; it reports it.
func (p *Provider) Status(ctx context.Context, local *Collection) ([]*ChangeSetStatus, error) {
	if local == nil {
		return nil, errors.New("collection must not be nil")
	}
	var applied *Collection
	err := p.inTx(ctx, func(tx database.Tx) error {
		var err error
		applied, err = p.loadApplied(ctx, tx, local.Group())
		return err
	})
	if err != nil {
		return nil, err
	}
	return status(local, applied), nil
}

func status(local, applied *Collection) []*ChangeSetStatus {
	group := local.Group()
	var result []*ChangeSetStatus
	for _, cs := range local.changeSets {
		st := &ChangeSetStatus{
			Group:      group,
			ChangeSet:  cs.Name,
			State:      StatePending,
			Reversible: cs.Reversible(),
		}
		if prev, ok := applied.Lookup(cs.Name.Version); ok {
			st.State = StateApplied
			switch {
			case prev.Name.Name != cs.Name.Name:
				st.Reason = ReasonNameMismatch
			case prev.UpSQL != cs.UpSQL:
				st.Reason = ReasonUpSQLMismatch
			case !sameDownSQL(prev.DownSQL, cs.DownSQL):
				st.Reason = ReasonDownSQLMismatch
			}
			if st.Reason != "" {
				st.State = StateDiverged
			}
			// Rolling back runs what was recorded, not what is on disk.
			st.Reversible = prev.Reversible()
		}
		result = append(result, st)
	}
	for _, prev := range applied.changeSets {
		if _, ok := local.Lookup(prev.Name.Version); ok {
			continue
		}
		result = append(result, &ChangeSetStatus{
			Group:      group,
			ChangeSet:  prev.Name,
			State:      StateUntracked,
			Reversible: prev.Reversible(),
		})
	}
	slices.SortStableFunc(result, func(a, b *ChangeSetStatus) int {
		return a.ChangeSet.Compare(b.ChangeSet)
	})
	return result
}
