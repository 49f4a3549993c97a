package mapping

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Descriptor is a serializable snapshot of an entity.
type Descriptor struct {
	Name        string                `yaml:"name" msgpack:"name"`
	Table       string                `yaml:"table,omitempty" msgpack:"table,omitempty"`
	ForceQuote  bool                  `yaml:"force_quote,omitempty" msgpack:"force_quote,omitempty"`
	Kind        string                `yaml:"kind,omitempty" msgpack:"kind,omitempty"`
	Properties  []*PropertyDescriptor `yaml:"properties" msgpack:"properties"`
	Constructor []string              `yaml:"constructor,omitempty" msgpack:"constructor,omitempty"`
}

// PropertyDescriptor is a serializable snapshot of a property.
type PropertyDescriptor struct {
	Name       string `yaml:"name" msgpack:"name"`
	GoType     string `yaml:"go_type,omitempty" msgpack:"go_type,omitempty"`
	Column     string `yaml:"column,omitempty" msgpack:"column,omitempty"`
	ForceQuote bool   `yaml:"force_quote,omitempty" msgpack:"force_quote,omitempty"`
	Type       string `yaml:"type,omitempty" msgpack:"type,omitempty"`
	Shape      string `yaml:"shape,omitempty" msgpack:"shape,omitempty"`
	Nested     string `yaml:"nested,omitempty" msgpack:"nested,omitempty"`
	Nillable   bool   `yaml:"nillable,omitempty" msgpack:"nillable,omitempty"`
	ID         bool   `yaml:"id,omitempty" msgpack:"id,omitempty"`
	Role       string `yaml:"role,omitempty" msgpack:"role,omitempty"`
	Ordinal    *int   `yaml:"ordinal,omitempty" msgpack:"ordinal,omitempty"`
	Descending bool   `yaml:"descending,omitempty" msgpack:"descending,omitempty"`
	Immutable  bool   `yaml:"immutable,omitempty" msgpack:"immutable,omitempty"`
	Version    bool   `yaml:"version,omitempty" msgpack:"version,omitempty"`
}

// Descriptor returns a snapshot of the entity.
func (e *Entity) Descriptor() (*Descriptor, error) {
	d := &Descriptor{
		Name:       e.name,
		Table:      e.table.Name(),
		ForceQuote: e.table.IsQuoted(),
		Kind:       e.kind.String(),
	}
	for _, p := range e.params {
		d.Constructor = append(d.Constructor, p.name)
	}
	for _, p := range e.props {
		pd := &PropertyDescriptor{
			Name:       p.name,
			GoType:     p.goType,
			Column:     p.column.Name(),
			ForceQuote: p.column.IsQuoted(),
			Shape:      p.shape.String(),
			Nested:     p.nestedName,
			Nillable:   p.nillable,
			ID:         p.id,
			Role:       p.role.String(),
			Descending: p.descending,
			Immutable:  p.immutable,
			Version:    p.version,
		}
		if !p.composite {
			t, err := e.DataType(p)
			if err != nil {
				return nil, err
			}
			pd.Type = t.String()
		}
		if p.hasOrdinal {
			n := p.ordinal
			pd.Ordinal = &n
		}
		d.Properties = append(d.Properties, pd)
	}
	return d, nil
}

// Descriptors returns the snapshots of all registered entities.
func (c *Context) Descriptors() ([]*Descriptor, error) {
	entities, err := c.Entities()
	if err != nil {
		return nil, err
	}
	ds := make([]*Descriptor, len(entities))
	for i, e := range entities {
		if ds[i], err = e.Descriptor(); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// EncodeDescriptors encodes descriptors with msgpack.
func EncodeDescriptors(ds []*Descriptor) ([]byte, error) {
	b, err := msgpack.Marshal(ds)
	if err != nil {
		return nil, fmt.Errorf("mapping: encode descriptors: %w", err)
	}
	return b, nil
}

// DecodeDescriptors decodes descriptors encoded by EncodeDescriptors.
func DecodeDescriptors(b []byte) ([]*Descriptor, error) {
	var ds []*Descriptor
	if err := msgpack.Unmarshal(b, &ds); err != nil {
		return nil, fmt.Errorf("mapping: decode descriptors: %w", err)
	}
	return ds, nil
}
