package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrFinalized is returned by every Builder mutator after Build has been
// called.
var ErrFinalized = errors.New("model builder is finalized")

// ElementError attributes an evaluation failure to a specific named element
// in the graph.
type ElementError struct {
	Element string
	Err     error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("unable to evaluate element %q: %v", e.Element, e.Err)
}

func (e *ElementError) Unwrap() error { return e.Err }

// InitError reports that feasible-input synthesis exhausted its attempt
// budget with keys still unresolved, which usually means the registered
// validators are too strict or contradictory for those keys.
type InitError struct {
	Missing  []string
	Attempts int
}

func (e *InitError) Error() string {
	missing := append([]string(nil), e.Missing...)
	sort.Strings(missing)
	return fmt.Sprintf(
		"could not synthesize feasible values for %s after %d attempts",
		strings.Join(missing, ", "), e.Attempts)
}
