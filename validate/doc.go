// Package validate implements declarative per-parameter constraint checking
// for model inputs. A Validator is attached to a single parameter name and
// checks (or coerces, clamps, substitutes) the value found under that name
// in a record of named cty values.
//
// Two validator kinds exist: Limits (numeric range, optionally with
// functional bounds that depend on other parameters) and Values (a finite
// admissible set). Both support conditional applicability: a validator with
// conditions on other parameters is inert unless every condition is met.
package validate
