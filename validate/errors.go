package validate

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// ErrConditionNotMet is returned by Validate under ConditionsRaise when one
// or more of the validator's conditions are not satisfied by the record.
var ErrConditionNotMet = errors.New("validator conditions not met")

// MissingKeysError reports that a record lacks keys the validator (or its
// conditions, or its functional bounds) needs in order to run.
type MissingKeysError struct {
	Key     string
	Missing []string
}

func (e *MissingKeysError) Error() string {
	missing := append([]string(nil), e.Missing...)
	sort.Strings(missing)
	return fmt.Sprintf("validator for %q: missing required keys: %s",
		e.Key, strings.Join(missing, ", "))
}

// RangeError reports a value outside a Limits validator's evaluated range
// under strict enforcement.
type RangeError struct {
	Key      string
	Value    float64
	Min, Max float64
	Closed   Closed
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("argument %s=%v is outside the limits %s",
		e.Key, e.Value, rangeNotation(e.Min, e.Max, e.Closed))
}

// MembershipError reports a value absent from a Values validator's
// admissible set under strict enforcement.
type MembershipError struct {
	Key    string
	Value  cty.Value
	Values []cty.Value
}

func (e *MembershipError) Error() string {
	opts := make([]string, len(e.Values))
	for i, v := range e.Values {
		opts[i] = valueString(v)
	}
	return fmt.Sprintf("argument %s=%s must be one of {%s}",
		e.Key, valueString(e.Value), strings.Join(opts, ", "))
}

// TypeError reports a failed dtype coercion. It is distinct from RangeError
// and MembershipError: the value could not even be brought to the
// validator's declared type.
type TypeError struct {
	Key  string
	Want cty.Type
	Err  error
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("argument %s cannot be coerced to %s: %v",
		e.Key, e.Want.FriendlyName(), e.Err)
}

func (e *TypeError) Unwrap() error { return e.Err }
