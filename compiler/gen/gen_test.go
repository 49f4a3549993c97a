package gen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/cassava/compiler/load"
)

const testSchema = `
package: model
entities:
  - name: Person
    properties:
      - {name: id, go_type: string, id: true}
      - {name: lastname, go_type: string}
      - {name: age, go_type: int32}
      - {name: nicknames, go_type: "[]string", shape: set}
      - {name: address, nested: Address}
      - {name: createdAt, go_type: time.Time, immutable: true}
  - name: Address
    kind: user_type
    properties:
      - {name: city, go_type: "*string"}
      - {name: location, nested: Point}
  - name: Point
    kind: tuple
    properties:
      - {name: lat, go_type: float64}
      - {name: lon, go_type: float64}
  - name: Post
    table: posts
    properties:
      - {name: key, nested: PostKey}
      - {name: title, go_type: string}
      - {name: scores, go_type: "map[string]int32", shape: map}
  - name: PostKey
    kind: primary_key_class
    properties:
      - {name: author, go_type: string, role: partition}
      - {name: createdAt, go_type: time.Time, role: clustering, ordinal: 0, descending: true}
  - name: Account
    table: accounts
    constructor: [id, name]
    properties:
      - {name: id, go_type: uuid.UUID, id: true}
      - {name: name, go_type: string}
      - {name: balance, go_type: decimal.Decimal}
      - {name: note, go_type: string, type: ascii}
      - {name: version, go_type: int64, version: true}
`

// testGraph builds the graph of testSchema.
func testGraph(t *testing.T, opts ...Option) *Graph {
	t.Helper()
	spec, err := load.Parse([]byte(testSchema))
	require.NoError(t, err)
	c, err := NewConfig(append([]Option{WithTarget(t.TempDir())}, opts...)...)
	require.NoError(t, err)
	g, err := NewGraph(c, spec)
	require.NoError(t, err)
	return g
}
