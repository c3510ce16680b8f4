package nif

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by this package wraps exactly one class.
var (
	// ErrFormat marks files that do not follow the format: unsupported
	// versions, unknown record types, corrupt tables.
	ErrFormat = errors.New("nif: format error")
	// ErrTruncated marks reads past the end of the data.
	ErrTruncated = errors.New("nif: truncated data")
	// ErrStructure marks syntactically valid files whose object graph is
	// inconsistent.
	ErrStructure = errors.New("nif: structural error")
	// ErrUnsupportedFeature marks recognised records whose layout or build
	// logic for the current version combination is not implemented.
	// Callers may choose to skip these.
	ErrUnsupportedFeature = errors.New("nif: unsupported feature")
)

// Format errors.
var (
	ErrInvalidHeader      = fmt.Errorf("%w: invalid header string", ErrFormat)
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported version", ErrFormat)
	ErrUnknownRecordType  = fmt.Errorf("%w: unknown record type", ErrFormat)
	ErrBadBlockTable      = fmt.Errorf("%w: corrupt block table", ErrFormat)
	ErrBadCount           = fmt.Errorf("%w: implausible element count", ErrFormat)
)

// Structural errors.
var (
	ErrNoRoots             = fmt.Errorf("%w: file has no roots", ErrStructure)
	ErrRefOutOfRange       = fmt.Errorf("%w: reference out of range", ErrStructure)
	ErrMultipleParents     = fmt.Errorf("%w: node has more than one parent", ErrStructure)
	ErrWrongRecordType     = fmt.Errorf("%w: reference points to unexpected record type", ErrStructure)
	ErrMissingSkeletonRoot = fmt.Errorf("%w: no skeleton root found", ErrStructure)
	ErrCycle               = fmt.Errorf("%w: cycle in node hierarchy", ErrStructure)
)

// BlockError annotates a decode failure with the block it happened in.
type BlockError struct {
	Index int
	Type  string
	Err   error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("block %d (%s): %v", e.Index, e.Type, e.Err)
}

func (e *BlockError) Unwrap() error { return e.Err }

// unsupported builds an ErrUnsupportedFeature with context.
func unsupported(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedFeature, fmt.Sprintf(format, args...))
}
