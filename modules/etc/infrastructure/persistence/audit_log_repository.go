package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"

	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/auditlog"
	"github.com/iota-uz/etc-portal/modules/etc/infrastructure/persistence/models"
	"github.com/iota-uz/etc-portal/pkg/composables"
	"github.com/iota-uz/etc-portal/pkg/repo"
)

type AuditLogRepository struct{}

func NewAuditLogRepository() auditlog.Repository {
	return &AuditLogRepository{}
}

func (r *AuditLogRepository) List(ctx context.Context, params *auditlog.FindParams) ([]*auditlog.Entry, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	where, args := buildAuditFilters(params)
	query := `
		SELECT id, request_id, action, old_data, new_data, actor_id, created_at
		FROM etc_audit_log
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC`
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list audit entries")
	}
	defer rows.Close()

	var results []*auditlog.Entry
	for rows.Next() {
		var m models.AuditLogEntry
		if err := rows.Scan(
			&m.ID, &m.RequestID, &m.Action, &m.OldData, &m.NewData, &m.ActorID, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, toDomainAuditEntry(&m))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *AuditLogRepository) Count(ctx context.Context, params *auditlog.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	where, args := buildAuditFilters(params)

	var count int64
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM etc_audit_log WHERE `+strings.Join(where, " AND "),
		args...,
	).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "count audit entries")
	}
	return count, nil
}

func (r *AuditLogRepository) Create(ctx context.Context, entry *auditlog.Entry) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO etc_audit_log (request_id, action, old_data, new_data, actor_id)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.RequestID.String(), string(entry.Action),
		entry.OldData, entry.NewData, uuidPtrString(entry.ActorID),
	)
	if err != nil {
		return errors.Wrap(err, "insert audit entry")
	}
	return nil
}

func buildAuditFilters(params *auditlog.FindParams) ([]string, []any) {
	where := []string{"1 = 1"}
	var args []any
	idx := 1

	if params == nil {
		return where, args
	}
	if params.RequestID != nil {
		where = append(where, fmt.Sprintf("request_id = $%d", idx))
		args = append(args, params.RequestID.String())
		idx++
	}
	if len(params.Actions) > 0 {
		actions := make([]string, len(params.Actions))
		for i, a := range params.Actions {
			actions[i] = string(a)
		}
		where = append(where, fmt.Sprintf("action = ANY($%d)", idx))
		args = append(args, actions)
		idx++
	}
	return where, args
}
