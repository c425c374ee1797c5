// Package reference loads and queries nested lookup tables of model
// coefficients. A reference document declares an ordered list of level
// names, a list of leaf keys, and a data tree nested one object deep per
// level. Queries walk the levels in declared order and return the leaf
// record, or a single conversion factor for scalar-leaf tables.
package reference
