package models

import (
	"fmt"
	"strings"
)

// InputReadError means the source file is missing, corrupt or unreadable.
type InputReadError struct {
	Path string
	Err  error
}

func (e *InputReadError) Error() string {
	return fmt.Sprintf("read input %q: %v", e.Path, e.Err)
}

func (e *InputReadError) Unwrap() error { return e.Err }

// SchemaError means a required canonical column is absent after normalization.
type SchemaError struct {
	Column    string
	Available []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: required column %q not found (have: %s)",
		e.Column, strings.Join(e.Available, ", "))
}

// TemporalParseError is row scoped: the row is kept with null temporal fields.
type TemporalParseError struct {
	Row  int
	Date string
	Time string
	Err  error
}

func (e *TemporalParseError) Error() string {
	return fmt.Sprintf("row %d: cannot parse timestamp %q %q: %v", e.Row, e.Date, e.Time, e.Err)
}

func (e *TemporalParseError) Unwrap() error { return e.Err }

// TargetDefinitionError flags a severity code outside {1,2,3}.
type TargetDefinitionError struct {
	Row  int
	Code string
}

func (e *TargetDefinitionError) Error() string {
	return fmt.Sprintf("row %d: severity code %q outside {1,2,3}", e.Row, e.Code)
}

// ConvergenceWarning is non-fatal: the optimizer stopped before converging
// and the model keeps its best-effort parameters.
type ConvergenceWarning struct {
	Iterations int
	Status     string
	Err        error
}

func (e *ConvergenceWarning) Error() string {
	msg := fmt.Sprintf("optimizer did not converge after %d iterations (status %s)", e.Iterations, e.Status)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConvergenceWarning) Unwrap() error { return e.Err }

// EncodingMismatchError means data presented for scoring does not match the
// vocabulary the model was trained with.
type EncodingMismatchError struct {
	Expected []string
	Got      []string
	Column   string
	Value    string
}

func (e *EncodingMismatchError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("encoding mismatch: column %q has value %q not in the training vocabulary", e.Column, e.Value)
	}
	return fmt.Sprintf("encoding mismatch: expected %d feature columns, got %d (first difference: %s)",
		len(e.Expected), len(e.Got), firstDifference(e.Expected, e.Got))
}

func firstDifference(a, b []string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return fmt.Sprintf("position %d want %q got %q", i, a[i], b[i])
		}
	}
	if len(a) != len(b) {
		return fmt.Sprintf("position %d", n)
	}
	return "none"
}
