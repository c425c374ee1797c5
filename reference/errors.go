package reference

import (
	"fmt"
	"sort"
	"strings"
)

// MissingLevelsError reports a query that does not supply values for every
// level a reference declares.
type MissingLevelsError struct {
	Ref      string
	Levels   []string
	Provided []string
}

func (e *MissingLevelsError) Error() string {
	provided := append([]string(nil), e.Provided...)
	sort.Strings(provided)
	return fmt.Sprintf(
		"reference %q requires values for all levels (%s); provided: %s",
		e.Ref, strings.Join(e.Levels, ", "), strings.Join(provided, ", "))
}

// LookupError reports a query path that does not exist in the reference
// data tree.
type LookupError struct {
	Ref  string
	Path []string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("invalid reference keys for %q: %s",
		e.Ref, strings.Join(e.Path, "/"))
}
