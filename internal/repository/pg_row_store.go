package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dynaerp/notify-engine/internal/domain"
)

// PgRowStore reads dynamically configured tables and the tenant metadata
// around them. It implements catalog.MetadataProvider, catalog.ConfigProvider,
// recipient.Directory, and the engine's RowProvider.
//
// Transaction tables are created by external tooling, so the store can make
// no assumptions about their columns beyond id/company_id; rows are fetched
// whole via row_to_json and handed around as domain.Row.
type PgRowStore struct {
	pool *pgxpool.Pool
}

func NewPgRowStore(pool *pgxpool.Pool) *PgRowStore {
	return &PgRowStore{pool: pool}
}

// tableNameRe rejects anything that cannot be a generated table name before
// it gets near an SQL identifier position.
var tableNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func quoteTable(table string) (string, error) {
	if !tableNameRe.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return pgx.Identifier{table}.Sanitize(), nil
}

// RowByID fetches one row of a dynamic table as a Row. Returns (nil, nil)
// when the row does not exist — absence is "nothing to do", not an error.
func (s *PgRowStore) RowByID(ctx context.Context, table, id, companyID string) (domain.Row, error) {
	ident, err := quoteTable(table)
	if err != nil {
		return nil, err
	}

	var row domain.Row
	query := fmt.Sprintf(
		`SELECT row_to_json(t) FROM %s t WHERE t.id::text = $1 AND t.company_id::text = $2`, ident)
	err = s.pool.QueryRow(ctx, query, id, companyID).Scan(&row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", table, id, err)
	}
	return row, nil
}

// StructuralRelations derives one relation per foreign key on table from
// the information schema.
func (s *PgRowStore) StructuralRelations(ctx context.Context, table string) ([]domain.Relation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name
		 AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_name = $1`, table)
	if err != nil {
		return nil, fmt.Errorf("structural relations for %s: %w", table, err)
	}
	defer rows.Close()

	var out []domain.Relation
	for rows.Next() {
		var rel domain.Relation
		if err := rows.Scan(&rel.SourceColumn, &rel.TargetTable, &rel.TargetIDField); err != nil {
			return nil, err
		}
		rel.Origin = domain.OriginStructural
		out = append(out, rel)
	}
	return out, rows.Err()
}

// CustomRelations loads tenant-configured relations for table from the
// table_relations configuration store.
func (s *PgRowStore) CustomRelations(ctx context.Context, table, companyID string) ([]domain.Relation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT source_column, target_table, target_id_field, is_array,
		       COALESCE(filter_column, ''), COALESCE(filter_value, '')
		FROM table_relations
		WHERE source_table = $1 AND company_id = $2`, table, companyID)
	if err != nil {
		return nil, fmt.Errorf("custom relations for %s: %w", table, err)
	}
	defer rows.Close()

	var out []domain.Relation
	for rows.Next() {
		var rel domain.Relation
		if err := rows.Scan(&rel.SourceColumn, &rel.TargetTable, &rel.TargetIDField,
			&rel.IsArray, &rel.FilterColumn, &rel.FilterValue); err != nil {
			return nil, err
		}
		rel.Origin = domain.OriginCustom
		out = append(out, rel)
	}
	return out, rows.Err()
}

// NotificationConfigs loads every config registered for a target table.
func (s *PgRowStore) NotificationConfigs(ctx context.Context, table, companyID string) ([]domain.NotificationConfig, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT name, COALESCE(id_field, 'id'), COALESCE(display_fields, '{}'),
		       COALESCE(role, ''), COALESCE(dashboard_fields, '{}'),
		       COALESCE(email_fields, '{}'), COALESCE(phone_fields, '{}'),
		       COALESCE(notify_fields, '{}'),
		       COALESCE(type_field, ''), COALESCE(type_value, '')
		FROM notification_configs
		WHERE target_table = $1 AND company_id = $2`, table, companyID)
	if err != nil {
		return nil, fmt.Errorf("notification configs for %s: %w", table, err)
	}
	defer rows.Close()

	var out []domain.NotificationConfig
	for rows.Next() {
		var cfg domain.NotificationConfig
		var role string
		if err := rows.Scan(&cfg.Name, &cfg.IDField, &cfg.DisplayFields, &role,
			&cfg.DashboardFields, &cfg.EmailFields, &cfg.PhoneFields,
			&cfg.NotifyFields, &cfg.TypeField, &cfg.TypeValue); err != nil {
			return nil, err
		}
		cfg.Role = domain.Role(role)
		out = append(out, cfg)
	}
	return out, rows.Err()
}

// ---- recipient.Directory ----

func (s *PgRowStore) EmployeesByCompany(ctx context.Context, companyID string) ([]string, error) {
	return s.employeeIDs(ctx, `
		SELECT DISTINCT emp_id::text FROM employments WHERE company_id::text = $1`, companyID)
}

func (s *PgRowStore) EmployeesByDepartment(ctx context.Context, departmentID, companyID string) ([]string, error) {
	if companyID == "" {
		return s.employeeIDs(ctx, `
			SELECT DISTINCT emp_id::text FROM employments WHERE department_id::text = $1`, departmentID)
	}
	return s.employeeIDs(ctx, `
		SELECT DISTINCT emp_id::text FROM employments
		WHERE department_id::text = $1 AND company_id::text = $2`, departmentID, companyID)
}

func (s *PgRowStore) EmployeesByBranch(ctx context.Context, branchID, companyID string) ([]string, error) {
	if companyID == "" {
		return s.employeeIDs(ctx, `
			SELECT DISTINCT emp_id::text FROM employments WHERE branch_id::text = $1`, branchID)
	}
	return s.employeeIDs(ctx, `
		SELECT DISTINCT emp_id::text FROM employments
		WHERE branch_id::text = $1 AND company_id::text = $2`, branchID, companyID)
}

func (s *PgRowStore) employeeIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("employee lookup: %w", err)
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
	return ids, rows.Err()
}
