package asqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowDuplicateNames(t *testing.T) {
	row := Row{columns: []Column{
		{Name: "foo", Value: Integer(1)},
		{Name: "foo", Value: Integer(2)},
	}}

	require.Equal(t, 2, row.Len())

	// Lookup by name returns the first match.
	v, ok := row.Value("foo")
	require.True(t, ok)
	first, _ := v.Int64()
	assert.Equal(t, int64(1), first)

	// Iteration exposes every column, each with its own value.
	var sum int64
	for _, c := range row.Columns() {
		if c.Name == "foo" {
			n, ok := c.Value.Int64()
			require.True(t, ok)
			sum += n
		}
	}
	assert.Equal(t, int64(3), sum)
}

func TestRowValueMissing(t *testing.T) {
	row := Row{columns: []Column{{Name: "a", Value: Null()}}}

	_, ok := row.Value("b")
	assert.False(t, ok)

	v, ok := row.Value("a")
	require.True(t, ok)
	assert.True(t, v.IsNull())
}

func TestRowOrderPreserved(t *testing.T) {
	row := Row{columns: []Column{
		{Name: "z", Value: Integer(1)},
		{Name: "a", Value: Integer(2)},
		{Name: "m", Value: Integer(3)},
	}}
	var names []string
	for i := 0; i < row.Len(); i++ {
		names = append(names, row.At(i).Name)
	}
	assert.Equal(t, []string{"z", "a", "m"}, names)
}
