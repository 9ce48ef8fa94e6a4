package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/db"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/migrate"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/modules/ingest/types"
)

//go:embed sql/get-mapping-by-code.sql
var getMappingByCodeSQL string

//go:embed sql/get-mapping-for-city.sql
var getMappingForCitySQL string

//go:embed sql/insert-mapping.sql
var insertMappingSQL string

//go:embed sql/update-mapping.sql
var updateMappingSQL string

// TimeLayout is how wall-clock timestamps are written to every table.
const TimeLayout = "2006-01-02 15:04:05.000000"

// Repository hands out request-scoped transactions.
type Repository interface {
	// InTx runs fn in one transaction. It commits when fn returns nil and
	// rolls back when fn fails or panics.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of store operations available inside a transaction.
type Tx interface {
	// MappingByCode returns the mapping for a normalized code, or nil.
	MappingByCode(ctx context.Context, code string) (*types.StationMapping, error)
	HasMappingForCity(ctx context.Context, city string) (bool, error)
	InsertMapping(ctx context.Context, code, city string, now time.Time) error
	UpdateMapping(ctx context.Context, id int64, code, city string, now time.Time) error
	InsertReading(ctx context.Context, schema types.Schema, r types.Reading) error
}

type repositoryImpl struct {
	db      *sql.DB
	dialect db.Dialect
	schema  *migrate.Schema
}

// NewRepository builds a repository over conn. When schema is non-nil it is
// ensured before every transaction.
func NewRepository(conn *sql.DB, dialect db.Dialect, schema *migrate.Schema) Repository {
	return &repositoryImpl{db: conn, dialect: dialect, schema: schema}
}

func (r *repositoryImpl) InTx(ctx context.Context, fn func(tx Tx) error) (err error) {
	if r.schema != nil {
		if err := r.schema.Ensure(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.Error("rollback", "error", rbErr)
		}
	}()

	if err := fn(&txImpl{tx: sqlTx, dialect: r.dialect}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

type txImpl struct {
	tx      *sql.Tx
	dialect db.Dialect
}

func (t *txImpl) MappingByCode(ctx context.Context, code string) (*types.StationMapping, error) {
	var m types.StationMapping
	err := t.tx.QueryRowContext(ctx, t.dialect.Rebind(getMappingByCodeSQL), code).
		Scan(&m.ID, &m.StationCode, &m.City, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup mapping %q: %w", code, err)
	}
	return &m, nil
}

func (t *txImpl) HasMappingForCity(ctx context.Context, city string) (bool, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, t.dialect.Rebind(getMappingForCitySQL), city).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup mapping for city %q: %w", city, err)
	}
	return true, nil
}

func (t *txImpl) InsertMapping(ctx context.Context, code, city string, now time.Time) error {
	ts := now.Format(TimeLayout)
	_, err := t.tx.ExecContext(ctx, t.dialect.Rebind(insertMappingSQL), code, city, ts, ts)
	if db.IsUniqueViolation(err) {
		return types.ErrDuplicateStationCode
	}
	if err != nil {
		return fmt.Errorf("insert mapping %q: %w", code, err)
	}
	return nil
}

func (t *txImpl) UpdateMapping(ctx context.Context, id int64, code, city string, now time.Time) error {
	_, err := t.tx.ExecContext(ctx, t.dialect.Rebind(updateMappingSQL), code, city, now.Format(TimeLayout), id)
	if db.IsUniqueViolation(err) {
		return types.ErrDuplicateStationCode
	}
	if err != nil {
		return fmt.Errorf("update mapping %d: %w", id, err)
	}
	return nil
}

func (t *txImpl) InsertReading(ctx context.Context, schema types.Schema, r types.Reading) error {
	query, args, err := buildInsertReading(schema, r)
	if err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx, t.dialect.Rebind(query), args...); err != nil {
		return readingInsertError(schema, err)
	}
	return nil
}

func readingInsertError(schema types.Schema, err error) error {
	if db.IsNumericOutOfRange(err) {
		return types.ErrValueOutOfRange
	}
	return fmt.Errorf("insert %s reading: %w", schema, err)
}

// buildInsertReading writes only the populated value columns. Column names
// come from the schema's fixed list, never from the payload.
func buildInsertReading(schema types.Schema, r types.Reading) (string, []any, error) {
	columns := schema.Columns()
	if columns == nil {
		return "", nil, fmt.Errorf("unknown schema %q", schema)
	}

	names := []string{"station_code", "city", "time"}
	var city any
	if r.City != nil {
		city = *r.City
	}
	args := []any{r.StationCode, city, r.Time.Format(TimeLayout)}
	for _, col := range columns {
		v := r.Values[col]
		if v == nil {
			continue
		}
		names = append(names, col)
		args = append(args, *v)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	query := fmt.Sprintf("INSERT INTO %s_readings (%s) VALUES (%s)", schema, strings.Join(names, ", "), placeholders)
	return query, args, nil
}
