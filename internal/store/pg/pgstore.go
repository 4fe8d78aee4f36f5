package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"medclaim.org/internal/claims"
	"medclaim.org/internal/ids"
)

const uniqueViolation = "23505"

const claimColumns = `id, patient_name, patient_id, hospital_name, diagnosis, treatment_date, submitted_date,
	claim_amount, approved_amount, currency, status, insurance_company, documents, timeline, notes,
	created_at, updated_at`

// Store keeps claims in PostgreSQL. Documents, timeline and notes are JSONB columns.
type Store struct {
	db *sql.DB
}

var _ claims.Store = (*Store)(nil)

// Open connects through the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	// Recycle connections so a Postgres failover is picked up.
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return New(db), nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Check pings the database for readiness probes.
func (s *Store) Check(ctx context.Context) error { return s.db.PingContext(ctx) }

// Create assigns the next claim code from claim_seq and inserts c. A code that
// already exists (sequence behind imported rows) is skipped.
func (s *Store) Create(ctx context.Context, c claims.Claim) (claims.Claim, error) {
	docs, timeline, notes, err := encodeLists(c)
	if err != nil {
		return claims.Claim{}, err
	}
	for attempt := 0; attempt < 3; attempt++ {
		var seq int64
		if err := s.db.QueryRowContext(ctx, `select nextval('claim_seq')`).Scan(&seq); err != nil {
			return claims.Claim{}, fmt.Errorf("next claim number: %w", err)
		}
		c.ID = ids.ClaimCode(uint64(seq))
		_, err := s.db.ExecContext(ctx, `insert into claims(`+claimColumns+`)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
			c.ID, c.PatientName, c.PatientID, c.HospitalName, c.Diagnosis,
			c.TreatmentDate.Time, c.SubmittedDate.Time, int64(c.ClaimAmount), nullAmount(c.ApprovedAmount),
			c.Currency, string(c.Status), c.InsuranceCompany, docs, timeline, notes,
			c.CreatedAt, c.UpdatedAt)
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == uniqueViolation {
			continue
		}
		if err != nil {
			return claims.Claim{}, fmt.Errorf("insert claim: %w", err)
		}
		return c.Clone(), nil
	}
	return claims.Claim{}, errors.New("insert claim: could not allocate a free claim number")
}

func (s *Store) Get(ctx context.Context, id string) (claims.Claim, error) {
	row := s.db.QueryRowContext(ctx, `select `+claimColumns+` from claims where id=$1`, id)
	c, err := scanClaim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return claims.Claim{}, fmt.Errorf("%w: %s", claims.ErrNotFound, id)
	}
	if err != nil {
		return claims.Claim{}, fmt.Errorf("get claim %s: %w", id, err)
	}
	return c, nil
}

// List returns claims in creation order.
func (s *Store) List(ctx context.Context) ([]claims.Claim, error) {
	rows, err := s.db.QueryContext(ctx, `select `+claimColumns+` from claims order by created_at asc, length(id) asc, id asc`)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()
	var out []claims.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return out, nil
}

// Mutate locks the row for the whole read-check-write so concurrent writers
// on the same claim serialize.
func (s *Store) Mutate(ctx context.Context, id string, fn func(*claims.Claim) error) (claims.Claim, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return claims.Claim{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := scanClaim(tx.QueryRowContext(ctx, `select `+claimColumns+` from claims where id=$1 for update`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return claims.Claim{}, fmt.Errorf("%w: %s", claims.ErrNotFound, id)
	}
	if err != nil {
		return claims.Claim{}, fmt.Errorf("lock claim %s: %w", id, err)
	}

	next := current.Clone()
	if err := fn(&next); err != nil {
		return claims.Claim{}, err
	}
	if next.ID != id {
		return claims.Claim{}, fmt.Errorf("%w: claim id is immutable", claims.ErrValidation)
	}
	if next.ClaimAmount != current.ClaimAmount {
		return claims.Claim{}, fmt.Errorf("%w: claim amount is immutable", claims.ErrValidation)
	}
	if err := next.CheckInvariants(); err != nil {
		return claims.Claim{}, err
	}

	docs, timeline, notes, err := encodeLists(next)
	if err != nil {
		return claims.Claim{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		update claims
		set approved_amount=$2, status=$3, documents=$4, timeline=$5, notes=$6, updated_at=$7
		where id=$1
	`, id, nullAmount(next.ApprovedAmount), string(next.Status), docs, timeline, notes, next.UpdatedAt); err != nil {
		return claims.Claim{}, fmt.Errorf("update claim %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return claims.Claim{}, fmt.Errorf("commit claim %s: %w", id, err)
	}
	return next.Clone(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (claims.Claim, error) {
	var (
		c                    claims.Claim
		treatment, submitted time.Time
		amount               int64
		approved             sql.NullInt64
		status               string
		docs, timeline, note []byte
	)
	if err := row.Scan(&c.ID, &c.PatientName, &c.PatientID, &c.HospitalName, &c.Diagnosis,
		&treatment, &submitted, &amount, &approved, &c.Currency, &status, &c.InsuranceCompany,
		&docs, &timeline, &note, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return claims.Claim{}, err
	}
	c.TreatmentDate = claims.DateOf(treatment)
	c.SubmittedDate = claims.DateOf(submitted)
	c.ClaimAmount = claims.Amount(amount)
	if approved.Valid {
		c.ApprovedAmount = claims.AmountPtr(claims.Amount(approved.Int64))
	}
	c.Status = claims.Status(status)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	for _, f := range []struct {
		raw []byte
		dst any
	}{{docs, &c.Documents}, {timeline, &c.Timeline}, {note, &c.Notes}} {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return claims.Claim{}, fmt.Errorf("decode claim %s: %w", c.ID, err)
		}
	}
	return c, nil
}

func encodeLists(c claims.Claim) (docs, timeline, notes []byte, err error) {
	if docs, err = marshalList(c.Documents); err != nil {
		return nil, nil, nil, fmt.Errorf("encode documents: %w", err)
	}
	if timeline, err = marshalList(c.Timeline); err != nil {
		return nil, nil, nil, fmt.Errorf("encode timeline: %w", err)
	}
	if notes, err = marshalList(c.Notes); err != nil {
		return nil, nil, nil, fmt.Errorf("encode notes: %w", err)
	}
	return docs, timeline, notes, nil
}

// marshalList writes [] rather than null for empty slices.
func marshalList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

func nullAmount(a *claims.Amount) sql.NullInt64 {
	if a == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*a), Valid: true}
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
