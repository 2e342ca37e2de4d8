package layout

import (
	"errors"
	"fmt"

	"github.com/san-kum/forcegraph/internal/dynamo"
)

var (
	ErrAlreadyDrilled = errors.New("layout: already drilled down")
	ErrNotDrilled     = errors.New("layout: not drilled down")
	ErrDragInProgress = errors.New("layout: a drag is in progress")
	ErrNoDrag         = errors.New("layout: no drag in progress")
	ErrLastRelation   = errors.New("layout: cannot delete the last relation of an instance")
	ErrNotDescriptor  = errors.New("layout: particle is not a descriptor")
	ErrRoot           = errors.New("layout: the root cannot be deleted")
)

// CommitError reports a data-source call that failed after the layout had
// already staged its side of the change.
type CommitError struct {
	Op  string
	ID  dynamo.ID
	Err error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("layout: %s %q: %v", e.Op, e.ID, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}
