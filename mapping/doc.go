// Package mapping describes how Go structs map to Cassandra tables, user
// types and tuples.
//
// Mappings are declared explicitly, without struct tags or reflection.
// Each property is bound to its struct field by an accessor function:
//
//	type Person struct {
//	    ID        string
//	    Lastname  string
//	    Firstname string
//	    Address   *Address
//	    Version   int64
//	}
//
//	mc := mapping.NewContext()
//	mc.MustRegister(
//	    mapping.Table[Person]("person").Fields(
//	        mapping.Field("id", func(p *Person) *string { return &p.ID }).ID(),
//	        mapping.Field("lastname", func(p *Person) *string { return &p.Lastname }),
//	        mapping.Field("firstname", func(p *Person) *string { return &p.Firstname }),
//	        mapping.NillableEmbedded("address", func(p *Person) **Address { return &p.Address }),
//	        mapping.Version("version", func(p *Person) *int64 { return &p.Version }),
//	    ),
//	    mapping.UserType[Address]("address").Fields(
//	        mapping.Field("city", func(a *Address) *string { return &a.City }),
//	    ),
//	)
//	entity, err := mapping.EntityOf[Person](mc)
//
// Entities are resolved lazily and cached by the Context. Declaration errors
// such as duplicate key ordinals or ambiguous Go types surface on first
// resolution as *cassava.MappingError or *cassava.AmbiguousOrdinalError.
package mapping
