package mapping

import (
	"maps"
	"slices"
	"strings"
)

// MapID is a composite identifier given as property names to values. It
// addresses rows of tables whose key columns are declared inline or by a
// primary key class.
//
//	mapping.MapID{"lastname": "White", "firstname": "Walter"}
type MapID map[string]any

// NewMapID returns an empty MapID.
func NewMapID() MapID { return make(MapID) }

// With sets a key value and returns the id.
func (id MapID) With(name string, v any) MapID {
	id[name] = v
	return id
}

// Lookup returns the value of the named key. Names match case-insensitively.
func (id MapID) Lookup(name string) (any, bool) {
	if v, ok := id[name]; ok {
		return v, true
	}
	for k, v := range id {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// Names returns the key names in sorted order.
func (id MapID) Names() []string {
	return slices.Sorted(maps.Keys(id))
}
