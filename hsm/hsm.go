// Package hsm registers the bundled Highway Safety Manual prediction
// models.
package hsm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tariqshihadah/cpm/hsm/rtlint"
	"github.com/tariqshihadah/cpm/hsm/rtlseg"
	"github.com/tariqshihadah/cpm/model"
)

// builders maps each model name to its constructor. Registration is
// explicit; adding a model means adding a line here.
var builders = map[string]func() (*model.Model, error){
	"rtl_seg": rtlseg.New,
	"rtl_int": rtlint.New,
}

// Names returns the available model names, sorted.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the named model.
func New(name string) (*model.Model, error) {
	build, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown model %q (have: %s)",
			name, strings.Join(Names(), ", "))
	}
	return build()
}
