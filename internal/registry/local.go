package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lispendens-cli/internal/db"
	"github.com/sells-group/lispendens-cli/internal/model"
)

// Local queries the Postgres parcel mirror populated by `parcels sync`.
// Equality predicates compare uppercased trimmed owner names, matching how
// the portal compares filed names; contains predicates become ILIKE. Rows
// come back ordered by parcel number so first-in-order tie-breaking is
// stable across runs.
type Local struct {
	pool db.Pool
}

var _ Searcher = (*Local)(nil)

// NewLocal creates a mirror-backed searcher over an existing pool. The
// searcher does not own the pool.
func NewLocal(pool db.Pool) *Local {
	return &Local{pool: pool}
}

func (l *Local) Search(ctx context.Context, q Query) ([]model.CandidateParcel, error) {
	sql, args := buildLocalSQL(q)

	rows, err := l.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, Unavailable(ProviderLocal, eris.Wrap(err, "local: query"))
	}
	defer rows.Close()

	var candidates []model.CandidateParcel
	for rows.Next() {
		var c model.CandidateParcel
		if err := rows.Scan(&c.ParcelNumber, &c.OwnerName, &c.AddressLine, &c.City, &c.Zip, &c.LegalText); err != nil {
			return nil, Unavailable(ProviderLocal, eris.Wrap(err, "local: scan row"))
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, Unavailable(ProviderLocal, eris.Wrap(err, "local: rows iteration"))
	}
	return candidates, nil
}

const localSelect = `SELECT parcel_number, owner_name, address_line, city, zip, legal_text FROM dor.parcels`

// buildLocalSQL translates a provider-neutral query to mirror SQL. The owner
// predicate and the OR-group widen exactly the way the portal's search form
// does: filter entries conjoined, any_of as one parenthesized OR.
func buildLocalSQL(q Query) (string, []any) {
	var b strings.Builder
	b.WriteString(localSelect)
	b.WriteString(` WHERE county_code = $1`)
	args := []any{q.CountyCode}

	clause, arg := predicateSQL(q.Owner, len(args)+1)
	b.WriteString(" AND " + clause)
	args = append(args, arg)

	if len(q.OwnerOr) > 0 {
		parts := make([]string, 0, len(q.OwnerOr))
		for _, p := range q.OwnerOr {
			clause, arg := predicateSQL(p, len(args)+1)
			parts = append(parts, clause)
			args = append(args, arg)
		}
		b.WriteString(" AND (" + strings.Join(parts, " OR ") + ")")
	}

	b.WriteString(" ORDER BY parcel_number")
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT $%d", len(args)+1)
		args = append(args, q.Limit)
	}
	return b.String(), args
}

// predicateSQL translates one owner predicate. The builder only ever emits
// the owner field, so the column is fixed.
func predicateSQL(p Predicate, argIdx int) (string, any) {
	switch p.Op {
	case OpEquals:
		return fmt.Sprintf("UPPER(TRIM(owner_name)) = UPPER(TRIM($%d))", argIdx), p.Value
	default:
		return fmt.Sprintf("owner_name ILIKE $%d", argIdx), "%" + p.Value + "%"
	}
}
