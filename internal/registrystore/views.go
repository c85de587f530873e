package registrystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GroupSummary is one master key row for listing.
type GroupSummary struct {
	MasterKey     string
	CanonicalName string
	Members       int
}

// GroupDetail is a master key group with its member names.
type GroupDetail struct {
	MasterKey     string
	CanonicalName string
	Members       []string
}

// Stats aggregates registry state for diagnostics.
type Stats struct {
	MasterKeys   int
	Members      int
	Fingerprints int
	Assignments  int
	Reused       int
}

// Groups lists all master key groups with member counts.
func (s *Store) Groups(ctx context.Context) ([]GroupSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT k.mk, k.canonical_name, COUNT(m.record_name)
         FROM master_keys k LEFT JOIN members m ON m.mk = k.mk
         GROUP BY k.mk, k.canonical_name ORDER BY k.mk`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []GroupSummary
	for rows.Next() {
		var g GroupSummary
		if err := rows.Scan(&g.MasterKey, &g.CanonicalName, &g.Members); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Group returns one master key group or nil when absent.
func (s *Store) Group(ctx context.Context, mk string) (*GroupDetail, error) {
	row := s.db.QueryRowContext(ctx, `SELECT mk, canonical_name FROM master_keys WHERE mk = ?`, mk)
	detail := &GroupDetail{}
	err := row.Scan(&detail.MasterKey, &detail.CanonicalName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT record_name FROM members WHERE mk = ? ORDER BY added_at, record_name`, mk)
	if err != nil {
		return nil, fmt.Errorf("group members: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan member name: %w", err)
		}
		detail.Members = append(detail.Members, name)
	}
	return detail, rows.Err()
}

// CollectStats returns registry counters.
func (s *Store) CollectStats(ctx context.Context) (Stats, error) {
	var stats Stats
	counters := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(1) FROM master_keys`, &stats.MasterKeys},
		{`SELECT COUNT(1) FROM members`, &stats.Members},
		{`SELECT COUNT(1) FROM fingerprints`, &stats.Fingerprints},
		{`SELECT COUNT(1) FROM assignments`, &stats.Assignments},
		{`SELECT COUNT(1) FROM assignments WHERE reused = 1`, &stats.Reused},
	}
	for _, c := range counters {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return Stats{}, fmt.Errorf("registry stats: %w", err)
		}
	}
	return stats, nil
}
