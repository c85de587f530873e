package masterkey

// Registry maps a master key to the record names currently assigned to it.
// It is the full current state of the grouping: supplied to the engine as a
// snapshot, mutated by exactly one insertion per assignment, and returned as
// a new snapshot. The engine never persists it.
type Registry map[string][]string

// Clone returns a deep copy of the registry.
func (r Registry) Clone() Registry {
	next := make(Registry, len(r))
	for mk, members := range r {
		next[mk] = append([]string(nil), members...)
	}
	return next
}

// Owner returns the master key a record name is currently assigned to.
func (r Registry) Owner(recordName string) (string, bool) {
	for mk, members := range r {
		for _, name := range members {
			if name == recordName {
				return mk, true
			}
		}
	}
	return "", false
}

// Apply materializes an outcome as a registry state transition and returns
// the assigned master key together with the updated snapshot. The input
// registry is never mutated: on any error the caller's snapshot is intact.
//
// A reuse outcome appends recordName to the target group, minting the group
// entry when the registry has no row for it yet. A new outcome obtains a
// fresh master key from keys and inserts a singleton group.
//
// Apply is not idempotent: applying the same record and outcome twice
// appends the record twice. De-duplicating by record identity before
// invoking the engine is the caller's responsibility.
func Apply(registry Registry, recordName string, outcome Outcome, keys KeySource) (string, Registry, error) {
	if owner, ok := registry.Owner(recordName); ok {
		if !outcome.Reuse || owner != outcome.MasterKey {
			return "", nil, ErrRecordConflict
		}
	}

	if outcome.Reuse {
		next := registry.Clone()
		next[outcome.MasterKey] = append(next[outcome.MasterKey], recordName)
		return outcome.MasterKey, next, nil
	}

	mk, err := keys.NewKey(registry)
	if err != nil {
		return "", nil, err
	}
	next := registry.Clone()
	next[mk] = []string{recordName}
	return mk, next, nil
}
