package notify

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotificationNotFound = errors.New("notification not found")

// Repository is the read side of the sink. Inserts happen inside the
// scheduling and directory transactions, not here.
type Repository interface {
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool) ([]Notification, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) error
}
