package cycles

import "fmt"

// Response determines how a detected cycle is handled.
type Response int

const (
	// Cancel aborts the build call that found the cycle with a structural
	// error. Parent resolution is unaffected beyond the propagated failure.
	Cancel Response = iota
	// Ignore skips the cyclic edge and continues resolving siblings. The
	// cyclic branch is simply omitted from the tree. Ignoring cycles
	// outright usually indicates a need for improved prototype design.
	Ignore
	// Escalate treats the cycle as unrecoverable: the build fails loudly
	// rather than silently producing a partial tree.
	Escalate
)

func (r Response) String() string {
	switch r {
	case Cancel:
		return "cancel"
	case Ignore:
		return "ignore"
	case Escalate:
		return "escalate"
	default:
		return fmt.Sprintf("Response(%d)", int(r))
	}
}

// ParseResponse maps a config string to a Response.
func ParseResponse(s string) (Response, error) {
	switch s {
	case "cancel", "":
		return Cancel, nil
	case "ignore":
		return Ignore, nil
	case "escalate":
		return Escalate, nil
	default:
		return Cancel, fmt.Errorf("unknown cycle policy %q (want cancel, ignore, or escalate)", s)
	}
}

// Policy decides the response to a detected cycle. It is a configuration
// point exposed to the host, invoked once per detected cycle.
type Policy func(*Cycle) Response
