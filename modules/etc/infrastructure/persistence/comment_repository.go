package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"

	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/comment"
	"github.com/iota-uz/etc-portal/modules/etc/infrastructure/persistence/models"
	"github.com/iota-uz/etc-portal/pkg/composables"
	"github.com/iota-uz/etc-portal/pkg/repo"
)

type CommentRepository struct{}

func NewCommentRepository() comment.Repository {
	return &CommentRepository{}
}

func (r *CommentRepository) List(ctx context.Context, params *comment.FindParams) ([]*comment.Comment, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	where := []string{"1 = 1"}
	var args []any
	idx := 1
	if params != nil && params.RequestID != nil {
		where = append(where, fmt.Sprintf("request_id = $%d", idx))
		args = append(args, params.RequestID.String())
		idx++
	}
	if params != nil && params.CustomerOnly {
		where = append(where, fmt.Sprintf("visibility = $%d", idx))
		args = append(args, string(comment.VisibilityInternalAndCustomer))
		idx++
	}

	query := `
		SELECT id, request_id, text, visibility, author_id, created_at
		FROM etc_comments
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at`
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list comments")
	}
	defer rows.Close()

	var results []*comment.Comment
	for rows.Next() {
		var m models.Comment
		if err := rows.Scan(
			&m.ID, &m.RequestID, &m.Text, &m.Visibility, &m.AuthorID, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, toDomainComment(&m))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *CommentRepository) Create(ctx context.Context, c *comment.Comment) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO etc_comments (request_id, text, visibility, author_id)
		VALUES ($1, $2, $3, $4)`,
		c.RequestID.String(), c.Text, string(c.Visibility), uuidPtrString(c.AuthorID),
	)
	if err != nil {
		return errors.Wrap(err, "insert comment")
	}
	return nil
}
