package cache

import "strings"

// Keyer derives cache keys from an operation name and its parameters.
// Identical inputs must yield identical keys and different inputs must
// yield different keys.
type Keyer interface {
	Key(op string, params ...string) string
}

// DefaultKeyer joins the operation and its parameters with ':'.
//
//	Key("leagues")           // "leagues"
//	Key("teams", "La Liga")  // "teams:La Liga"
//
// '%' and ':' inside parameters are percent-encoded so that a parameter
// can never be mistaken for a separator.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

var paramEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

// Key implements Keyer.
func (DefaultKeyer) Key(op string, params ...string) string {
	if len(params) == 0 {
		return op
	}
	var b strings.Builder
	b.WriteString(op)
	for _, p := range params {
		b.WriteByte(':')
		b.WriteString(paramEscaper.Replace(p))
	}
	return b.String()
}

// ScopedKeyer wraps a Keyer with a prefix. Clients talking to different
// backends can share one cache by scoping keys with the backend address:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "http://localhost:5000|")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// Key implements Keyer.
func (k *ScopedKeyer) Key(op string, params ...string) string {
	return k.prefix + k.inner.Key(op, params...)
}
