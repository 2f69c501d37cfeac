package vm

import (
	"errors"
	"fmt"
)

// Sentinel errors for every kind in SPEC_FULL.md section 7's taxonomy.
// Plain errors.New values, matching the teacher's style in vm/vm.go
// (errProgramFinished, errSegmentationFault, ...) rather than custom
// error struct types; positional/contextual detail is layered on with
// fmt.Errorf("%w: ...", sentinel) so callers can still errors.Is against
// the sentinel underneath.
var (
	errParse                    = errors.New("parse error")
	errInvalidParameter         = errors.New("invalid parameter")
	errInvalidIndex             = errors.New("invalid index")
	errInvalidRegister          = errors.New("invalid register")
	errInvalidBytecode          = errors.New("invalid bytecode")
	errUnassignedRegisterPointer = errors.New("register pointer not bound")
	errInsufficientMemory       = errors.New("insufficient memory for one element batch")
	errAllocation               = errors.New("allocation error")
	errSamplingFailed           = errors.New("sampling failed")
)

// parseErrorf wraps errParse with a position and message, matching the
// lexer/parser's Pos type.
func parseErrorf(pos Pos, format string, args ...any) error {
	return &posError{wrapped: errParse, pos: pos, msg: fmt.Sprintf(format, args...)}
}

type posError struct {
	wrapped error
	pos     Pos
	msg     string
}

func (e *posError) Error() string {
	return e.pos.String() + ": " + e.msg
}

func (e *posError) Unwrap() error { return e.wrapped }
