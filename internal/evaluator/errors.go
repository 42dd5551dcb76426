package evaluator

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidContent     = errors.New("invalid content")
	ErrDegenerateDuration = errors.New("degenerate duration")
)

// ErrorKind identifies why a block was skipped.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// InvalidContent means the payload does not match the block type.
	InvalidContent
	// DegenerateDuration means the block has no positive duration.
	DegenerateDuration
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidContent:
		return "invalid-content"
	case DegenerateDuration:
		return "degenerate-duration"
	default:
		return "unknown"
	}
}

// BlockError reports a per-block problem. It never aborts a timeline pass;
// the block is skipped and the error travels with its state.
type BlockError struct {
	BlockID string
	Kind    ErrorKind
	Err     error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("block %s [%s]: %v", e.BlockID, e.Kind, e.Err)
}

func (e *BlockError) Unwrap() error {
	return e.Err
}

func invalidContent(id, format string, args ...any) *BlockError {
	return &BlockError{
		BlockID: id,
		Kind:    InvalidContent,
		Err:     fmt.Errorf("%w: %s", ErrInvalidContent, fmt.Sprintf(format, args...)),
	}
}

func degenerateDuration(id string, d int64) *BlockError {
	return &BlockError{
		BlockID: id,
		Kind:    DegenerateDuration,
		Err:     fmt.Errorf("%w: %dms", ErrDegenerateDuration, d),
	}
}
