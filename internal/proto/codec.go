package proto

import (
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// DecodeFunc turns the YAML payload of one schematic entry into a concrete
// Schematic value.
type DecodeFunc func(node *yaml.Node) (Schematic, error)

// The codec table maps stable schematic type tags to decoder functions.
// It is resolved once at registration time rather than per-application,
// which replaces reflective dispatch with a plain function table.
var (
	codecsMu sync.RWMutex
	codecs   = make(map[string]DecodeFunc)
)

// RegisterSchematic adds a decoder for the given type tag. Registration
// normally happens in package init of the schematics package.
func RegisterSchematic(kind string, fn DecodeFunc) {
	codecsMu.Lock()
	defer codecsMu.Unlock()
	codecs[kind] = fn
}

// DecodeSchematic decodes one schematic entry using the registered decoder
// for its type tag.
func DecodeSchematic(kind string, node *yaml.Node) (Schematic, error) {
	codecsMu.RLock()
	fn, ok := codecs[kind]
	codecsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown schematic kind %q", kind)
	}
	return fn(node)
}

// SchematicKinds returns the registered type tags, sorted.
func SchematicKinds() []string {
	codecsMu.RLock()
	defer codecsMu.RUnlock()
	kinds := make([]string, 0, len(codecs))
	for kind := range codecs {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
