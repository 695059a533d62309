package dpctrl

import "errors"

// ErrTimeout is returned by PollDPRegister/DPInit when a polled
// condition never became true before the deadline. The root package
// wraps this into its own *Error taxonomy (ErrorKind Timeout).
var ErrTimeout = errors.New("dpctrl: timed out waiting for register condition")
