package model

import "fmt"

// Kind tags an element's role within the model graph. The tag distinguishes
// role for lookup and reporting, not behavior.
type Kind int

const (
	// KindSPF marks a safety performance function, the base crash
	// frequency estimate before adjustment.
	KindSPF Kind = iota
	// KindAF marks a multiplicative adjustment factor.
	KindAF
	// KindCF marks a local calibration factor.
	KindCF
	// KindSub marks an intermediate helper computation.
	KindSub
	// KindResult marks a reportable model output, collected into the
	// Prediction's result set.
	KindResult
	// KindHidden marks an element that feeds later layers but is excluded
	// from required-input listings.
	KindHidden
)

func (k Kind) String() string {
	switch k {
	case KindSPF:
		return "spf"
	case KindAF:
		return "af"
	case KindCF:
		return "cf"
	case KindSub:
		return "sub"
	case KindResult:
		return "result"
	case KindHidden:
		return "hidden"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}
