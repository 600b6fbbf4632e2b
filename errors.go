package ssfpatch

import (
	"fmt"
	"strings"
)

// FormatError reports input bytes that do not follow the SSF1/SMBH layout
// closely enough to continue. Offset is -1 when no position applies.
type FormatError struct {
	Op     string
	Offset int64
	Msg    string
	Err    error
}

func (e *FormatError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Op)
	sb.WriteString(": ")
	sb.WriteString(e.Msg)
	if e.Offset >= 0 {
		fmt.Fprintf(&sb, " (offset %d)", e.Offset)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *FormatError) Unwrap() error { return e.Err }

func formatErrorf(op string, offset int64, format string, args ...any) *FormatError {
	return &FormatError{Op: op, Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// ValidationError reports caller input rejected before any block is touched.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ValidationError) Error() string {
	s := "invalid " + e.Field + ": " + e.Msg
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ValidationError) Unwrap() error { return e.Err }

// PatchNotApplicableError means the input was well formed but nothing was
// changed. MatchedBlocks counts JSON-bearing blocks that matched the selector.
type PatchNotApplicableError struct {
	Selector      string
	Property      string
	MatchedBlocks int
}

func (e *PatchNotApplicableError) Error() string {
	if e.MatchedBlocks == 0 {
		return fmt.Sprintf("no JSON blocks matched selector %q", e.Selector)
	}
	return fmt.Sprintf("%d JSON block(s) matched selector %q but none contain property %q",
		e.MatchedBlocks, e.Selector, e.Property)
}

// Diagnostic is a non-fatal notice raised while decoding.
type Diagnostic struct {
	Offset int64
	Msg    string
}

func (d Diagnostic) String() string {
	if d.Offset < 0 {
		return d.Msg
	}
	return fmt.Sprintf("%s (offset %d)", d.Msg, d.Offset)
}
