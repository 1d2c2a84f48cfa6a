package comment

import "context"

type Repository interface {
	List(ctx context.Context, params *FindParams) ([]*Comment, error)
	Create(ctx context.Context, c *Comment) error
}
