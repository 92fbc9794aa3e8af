package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_ValidNames(t *testing.T) {
	for _, s := range []string{"a", "a/b/c", "my-cell", "/a/b/", "a/1b2"} {
		_, err := Parse(s)
		require.NoError(t, err, "expected %q to be valid", s)
	}
}

func TestParse_InvalidNames(t *testing.T) {
	for _, s := range []string{"", "/", "a_b", "a//b", "-a", "a-", "A"} {
		_, err := Parse(s)
		require.Error(t, err, "expected %q to be invalid", s)
	}
}

func TestPathAlgebra(t *testing.T) {
	a, err := Parse("a")
	require.NoError(t, err)

	ab, err := Parse("a/b")
	require.NoError(t, err)

	abc, err := Parse("a/b/c")
	require.NoError(t, err)

	require.True(t, a.IsChildOf(nil))
	require.True(t, ab.IsChildOf(&a))
	require.True(t, abc.IsChildOf(&ab))
	require.False(t, abc.IsChildOf(&a))

	require.Equal(t, a, ab.ToRoot())
	require.Equal(t, a, abc.ToRoot())

	child, ok := a.ToChild(abc)
	require.True(t, ok)
	require.Equal(t, ab, child)

	_, ok = abc.ToChild(a)
	require.False(t, ok)
}

func TestPopFirst(t *testing.T) {
	abc, err := Parse("a/b/c")
	require.NoError(t, err)

	first, rest, ok := abc.PopFirst()
	require.True(t, ok)
	require.Equal(t, "a", first)
	require.Equal(t, "b/c", rest.String())

	_, _, ok = CellName{}.PopFirst()
	require.False(t, ok)
}

func TestLeaf(t *testing.T) {
	abc, err := Parse("a/b/c")
	require.NoError(t, err)
	require.Equal(t, "c", abc.Leaf())
}
