// Package repository provides typed CRUD repositories and query methods
// derived from method names or declared as CQL strings.
//
// A derived method names its predicate:
//
//	people, _ := repository.New[Person](tpl)
//	byName, err := people.Method(repository.Signature{
//		Name:   "findByLastnameAndFirstname",
//		Params: []repository.Param{repository.Value("lastname"), repository.Value("firstname")},
//	})
//	found, err := byName.All(ctx, "White", "Walter")
//
// runs SELECT * FROM person WHERE lastname=? AND firstname=?. A declared
// method binds ?, ?N and :name placeholders to its value parameters, and
// evaluates ?#{...} and :#{...} expressions with the parameters in scope:
//
//	repository.Signature{
//		Name:   "findByLastname",
//		Query:  "SELECT * FROM person WHERE lastname = :#{#lastname == 'Matthews' ? 'Woohoo' : #lastname}",
//		Params: []repository.Param{repository.Value("lastname")},
//	}
//
// The execution kind of a method follows its name (count, exists, delete,
// stream, First) and parameters (a page request makes a slice query), or
// is declared with Signature.Returns.
package repository
