// Package gen generates Go mapping code and CQL schema from entity
// descriptors loaded by package load.
//
// # Pipeline
//
//	schema/*.yaml
//	        ↓
//	   load.Spec (validated mapping.Descriptor values)
//	        ↓
//	   Graph (Type and Field)
//	        ↓
//	   Writer (parallel rendering with Jennifer)
//
// # Generated Output
//
//	{target}/
//	├── {type}.go     // Struct, {Type}Declaration and New{Type}Repository
//	├── cassava.go    // Declarations and Register
//	├── schema.cql    // CREATE TYPE and CREATE TABLE statements
//	└── schema.go     // Schema, the embedded schema.cql
//
// The generated declarations need no reflection: every property is
// declared with an accessor function, so the package registers with
//
//	mc := mapping.NewContext()
//	if err := model.Register(mc); err != nil {
//	    return err
//	}
//
// # Configuration
//
// Configuration uses functional options:
//
//	config, err := gen.NewConfig(
//	    gen.WithTarget("./model"),
//	    gen.WithKeyspace("shop"),
//	)
//	spec, err := load.Load("./schema")
//	graph, err := gen.NewGraph(config, spec)
//	err = gen.Generate(ctx, graph)
package gen
