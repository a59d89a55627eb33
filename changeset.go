package dbmigration

import (
	"cmp"
	"fmt"
	"slices"
)

// VersionedName identifies a change set within a group. Change sets are ordered by version, then
// by name.
type VersionedName struct {
	Version int32
	Name    string
}

// Compare returns -1, 0 or +1 depending on whether v sorts before, equal to, or after other.
func (v VersionedName) Compare(other VersionedName) int {
	if c := cmp.Compare(v.Version, other.Version); c != 0 {
		return c
	}
	return cmp.Compare(v.Name, other.Name)
}

// Less reports whether v sorts before other.
func (v VersionedName) Less(other VersionedName) bool {
	return v.Compare(other) < 0
}

func (v VersionedName) String() string {
	return fmt.Sprintf("V%d %s", v.Version, v.Name)
}

// ChangeSet is one versioned schema delta.
type ChangeSet struct {
	Name  VersionedName
	UpSQL string
	// DownSQL reverts UpSQL. A nil DownSQL means the change set cannot be reverted automatically:
	// rolling it back only forgets that it was applied.
	DownSQL *string
}

// Reversible reports whether the change set has down SQL.
func (c *ChangeSet) Reversible() bool {
	return c.DownSQL != nil
}

func (c *ChangeSet) String() string {
	return c.Name.String()
}

func sameDownSQL(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Collection is an ordered group of change sets. It represents either the change sets defined
// locally for a group, or the history recorded for that group in the tracking table.
//
// A Collection is immutable: [Collection.Subset] and [Collection.Diff] return new collections.
type Collection struct {
	group      string
	changeSets []*ChangeSet
}

// NewCollection returns a collection for group holding a sorted copy of changeSets.
func NewCollection(group string, changeSets []*ChangeSet) *Collection {
	sorted := make([]*ChangeSet, len(changeSets))
	copy(sorted, changeSets)
	slices.SortStableFunc(sorted, func(a, b *ChangeSet) int {
		return a.Name.Compare(b.Name)
	})
	return &Collection{group: group, changeSets: sorted}
}

// Group returns the group name.
func (c *Collection) Group() string {
	return c.group
}

// Len returns the number of change sets.
func (c *Collection) Len() int {
	return len(c.changeSets)
}

// ChangeSets returns a copy of the change sets in ascending order.
func (c *Collection) ChangeSets() []*ChangeSet {
	return slices.Clone(c.changeSets)
}

// At returns the change set at index i.
func (c *Collection) At(i int) *ChangeSet {
	return c.changeSets[i]
}

// Lookup returns the change set with the given version, if any.
func (c *Collection) Lookup(version int32) (*ChangeSet, bool) {
	i, found := slices.BinarySearchFunc(c.changeSets, version, func(cs *ChangeSet, v int32) int {
		return cmp.Compare(cs.Name.Version, v)
	})
	if !found {
		return nil, false
	}
	return c.changeSets[i], true
}

// Subset returns the change sets in the half-open index range [start, end).
func (c *Collection) Subset(start, end int) (*Collection, error) {
	if start < 0 || end > len(c.changeSets) || start > end {
		return nil, fmt.Errorf("%w: subset [%d:%d] of %d change sets in group %q",
			ErrOutOfRange, start, end, len(c.changeSets), c.group)
	}
	return &Collection{
		group:      c.group,
		changeSets: slices.Clone(c.changeSets[start:end]),
	}, nil
}

// Diff reconciles the local collection c against the applied history and returns the change sets
// that still have to be applied, in ascending order.
//
// Local and applied change sets are compared position by position. The first difference in version
// is a [*VersionMismatchError]. A difference in name, up SQL or down SQL at the same version is an
// [*InconsistentHistoryError], as is a history that is longer than the local collection.
func (c *Collection) Diff(applied *Collection) (*Collection, error) {
	if err := c.compare(applied, true); err != nil {
		return nil, err
	}
	return c.Subset(applied.Len(), c.Len())
}

// compare walks c and applied in lock-step up to the shorter length. The down SQL is only compared
// when checkDownSQL is set.
func (c *Collection) compare(applied *Collection, checkDownSQL bool) error {
	if c.group != applied.group {
		return fmt.Errorf("%w: local %q, applied %q", ErrGroupMismatch, c.group, applied.group)
	}
	n := min(len(c.changeSets), len(applied.changeSets))
	for i := 0; i < n; i++ {
		local, prev := c.changeSets[i], applied.changeSets[i]
		if local.Name.Version != prev.Name.Version {
			return &VersionMismatchError{Local: local.Name.Version, Applied: prev.Name.Version}
		}
		version := local.Name.Version
		switch {
		case local.Name.Name != prev.Name.Name:
			return &InconsistentHistoryError{Reason: ReasonNameMismatch, Version: version}
		case local.UpSQL != prev.UpSQL:
			return &InconsistentHistoryError{Reason: ReasonUpSQLMismatch, Version: version}
		case checkDownSQL && !sameDownSQL(local.DownSQL, prev.DownSQL):
			return &InconsistentHistoryError{Reason: ReasonDownSQLMismatch, Version: version}
		}
	}
	if len(c.changeSets) < len(applied.changeSets) {
		missing := applied.changeSets[len(c.changeSets)].Name.Version
		return &InconsistentHistoryError{Reason: ReasonHistoryAhead, Version: missing}
	}
	return nil
}
