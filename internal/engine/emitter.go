package engine

import (
	"fmt"

	"github.com/stackit/stackit/internal/models"
)

// Emitter appends notifications inside the caller's unit of work, so a
// notification exists only if the write that caused it commits.
type Emitter struct{}

// Emit records n on behalf of actorID. It reports whether a row was written:
// notifications addressed to the actor themselves are dropped.
func (Emitter) Emit(tx Tx, actorID int64, n *models.Notification) (bool, error) {
	if !models.IsNotifyType(n.Type) {
		return false, fmt.Errorf("%w: unknown notification type %q", ErrInternal, n.Type)
	}
	if n.UserID == actorID {
		return false, nil
	}
	n.IsRead = false
	if err := tx.CreateNotification(n); err != nil {
		return false, err
	}
	return true, nil
}
