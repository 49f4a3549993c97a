package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStringQuery(t *testing.T) {
	q, err := parseStringQuery("SELECT * FROM t WHERE a = ? AND b = ?1 AND c = :name AND d = ?#{[0] + 1} AND e = '?:x' AND f = $$?$$")
	require.NoError(t, err)
	require.Len(t, q.params, 4)
	assert.Equal(t, placeholder{kind: placeholderNext, index: 0}, q.params[0])
	assert.Equal(t, placeholder{kind: placeholderIndex, index: 1}, q.params[1])
	assert.Equal(t, placeholder{kind: placeholderName, name: "name"}, q.params[2])
	assert.Equal(t, placeholder{kind: placeholderExpr, expr: "[0] + 1"}, q.params[3])
	assert.Equal(t, " AND e = '?:x' AND f = $$?$$", q.parts[4])

	q, err = parseStringQuery("SELECT ts::text FROM t")
	require.NoError(t, err)
	assert.Empty(t, q.params)

	_, err = parseStringQuery("SELECT * FROM t WHERE a = :#{#a")
	require.Error(t, err)
	_, err = parseStringQuery("SELECT * FROM t WHERE a = :#{ }")
	require.Error(t, err)
	_, err = parseStringQuery("SELECT * FROM t WHERE a = $$x")
	require.Error(t, err)
}

func TestRewriteExpr(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "#lastname", want: "lastname"},
		{in: "[0]", want: "args[0]"},
		{in: "[0] + [1]", want: "args[0] + args[1]"},
		{in: "#tags[0]", want: "tags[0]"},
		{in: "#a == null ? 'null' : #a", want: "a == nil ? 'null' : a"},
		{in: "nullable", want: "nullable"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, rewriteExpr(tt.in))
		})
	}
}

func TestSpread(t *testing.T) {
	assert.Equal(t, []any{"a", "b"}, spread([]string{"a", "b"}))
	assert.Equal(t, []any{1, 2}, spread([2]int{1, 2}))
	assert.Equal(t, []any{[]byte("x")}, spread([]byte("x")))
	assert.Equal(t, []any{"a"}, spread("a"))
}
