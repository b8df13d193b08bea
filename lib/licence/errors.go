package licence

import (
	"errors"
	"fmt"
)

// ErrAddressIncomplete is returned when an address has less than the
// 2 segments (postal code + municipality, street) needed to decompose it.
var ErrAddressIncomplete = errors.New("address is incomplete")

// StructuralError is returned when a table is shaped in a way that cannot be
// interpreted. The whole licence page must be considered unparseable.
type StructuralError struct {
	Table string
	// Row is the index of the offending <tr> or -1 when the whole table (or
	// page) is at fault.
	Row    int
	Reason string
}

func (e *StructuralError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("malformed %s: %s", e.Table, e.Reason)
	}
	return fmt.Sprintf("malformed %s: row %d: %s", e.Table, e.Row, e.Reason)
}

// NumericParseError is returned when a cell that must hold a number holds
// some other non-empty text. Empty cells are never an error.
type NumericParseError struct {
	Label string
	Text  string
	Err   error
}

func (e *NumericParseError) Error() string {
	return fmt.Sprintf("parse number of %q from %q: %s", e.Label, e.Text, e.Err)
}

func (e *NumericParseError) Unwrap() error {
	return e.Err
}

// ParseError is returned when an identification field of a facility cannot
// be read.
type ParseError struct {
	Field string
	Text  string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s from %q: %s", e.Field, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
