package poller

import (
	"fmt"

	"mspmon/msp"
)

// TransportError is returned when the link fails while exchanging
// a frame. The run can't continue after it.
type TransportError struct {
	Op  string
	Cmd msp.Cmd
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Cmd, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
