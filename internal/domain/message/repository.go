package message

import "context"

// Repository is the Message Store. The transport-side id is the primary key,
// so Exists before Save is the replay idempotency check.
type Repository interface {
	Exists(ctx context.Context, id string) (bool, error)
	Save(ctx context.Context, m *Message) error
}
