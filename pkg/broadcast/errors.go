package broadcast

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by Broadcast after Close.
var ErrClosed = errors.New("broadcast: broadcaster is closed")

// DroppedError reports that some subscribers missed a message because their
// buffer was full.
type DroppedError struct {
	Subscribers int
}

func (e *DroppedError) Error() string {
	return fmt.Sprintf("broadcast: message dropped for %d slow subscriber(s)", e.Subscribers)
}
