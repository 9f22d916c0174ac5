package identity

import (
	"errors"
	"fmt"
)

// ErrPendingApproval signals that the resolved account exists but is awaiting
// moderator approval. It is the one routine chain rejection and must stay
// distinguishable from generic authentication failure so the boundary can
// render a dedicated message.
var ErrPendingApproval = errors.New("account is pending moderator approval")

// InvariantError reports a draft that violates the contract for its event
// kind: pre-auth drafts require a username, federated drafts require both
// provider and external uid. This is an integration defect upstream of the
// chain and is never recovered locally.
type InvariantError struct {
	Kind  EventKind
	Field string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("identity invariant violated: %s event requires %s", e.Kind, e.Field)
}

// IsInvariantViolation reports whether err is an InvariantError.
func IsInvariantViolation(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
