package entities

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/obralink/obralink/internal/common"
	"github.com/obralink/obralink/internal/dbx"
	"github.com/obralink/obralink/internal/entity"
)

// PostgresRepository implements Repository over a dbx.DBTX. The table name
// is the entity kind itself; kinds form a closed, validated set, so it is
// never interpolated from raw request input.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func tableName(kind entity.Kind) (string, error) {
	k, err := entity.ParseKind(string(kind))
	if err != nil {
		return "", err
	}
	return string(k), nil
}

// Upsert stores the entity's full flattened JSON as the body. The
// (xmax = 0) trick distinguishes a fresh insert from a replaced row. The
// conflict update only fires when the incoming company matches the stored
// one: ownership is assigned at creation and never reassigned, so a write
// against someone else's id returns common.ErrCompanyMismatch instead of
// clobbering the row.
func (r *PostgresRepository) Upsert(ctx context.Context, kind entity.Kind, e entity.Entity) (bool, error) {
	table, err := tableName(kind)
	if err != nil {
		return false, err
	}

	body, err := json.Marshal(e)
	if err != nil {
		return false, fmt.Errorf("failed to marshal entity body: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s AS t (id, company_id, body)
		VALUES ($1, NULLIF($2, ''), $3)
		ON CONFLICT (id)
		DO UPDATE SET company_id = EXCLUDED.company_id, body = EXCLUDED.body
		WHERE t.company_id IS NOT DISTINCT FROM EXCLUDED.company_id
		RETURNING (xmax = 0)`, table)

	var inserted bool
	err = r.db.QueryRowContext(ctx, query, e.ID, e.CompanyID, body).Scan(&inserted)
	if errors.Is(err, sql.ErrNoRows) {
		return false, common.ErrCompanyMismatch
	}
	if err != nil {
		return false, fmt.Errorf("failed to upsert into %s: %w", table, err)
	}
	return inserted, nil
}

func filterClause(f entity.Filter, args *[]any) string {
	where := ""
	add := func(cond string, v string) {
		*args = append(*args, v)
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		where += fmt.Sprintf(cond, len(*args))
	}
	if f.ID != "" {
		add("id = $%d", f.ID)
	}
	if f.CompanyID != "" {
		add("company_id = $%d", f.CompanyID)
	}
	return where
}

func (r *PostgresRepository) SelectWhere(ctx context.Context, kind entity.Kind, f entity.Filter) ([]entity.Entity, error) {
	table, err := tableName(kind)
	if err != nil {
		return nil, err
	}

	var args []any
	query := fmt.Sprintf(`SELECT body FROM %s`, table) + filterClause(f, &args) + ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", table, err)
	}
	defer rows.Close()

	var result []entity.Entity
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var e entity.Entity
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, fmt.Errorf("corrupt body in %s: %w", table, err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) DeleteWhere(ctx context.Context, kind entity.Kind, f entity.Filter) ([]string, error) {
	table, err := tableName(kind)
	if err != nil {
		return nil, err
	}

	var args []any
	query := fmt.Sprintf(`DELETE FROM %s`, table) + filterClause(f, &args) + ` RETURNING id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
