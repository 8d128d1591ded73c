package estimation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qaebench/domain/core"
)

func mustAdd(t *testing.T, r Registry, label string) Registry {
	t.Helper()
	next, err := r.Add(label, []float64{1, 10}, []float64{0.1, 0.01}, nil)
	require.NoError(t, err)
	return next
}

func TestAddIsCopyOnWrite(t *testing.T) {
	empty := NewRegistry()
	one := mustAdd(t, empty, "A")

	assert.Equal(t, 0, empty.Len(), "receiver must be unchanged")
	assert.Equal(t, []string{"A"}, one.Labels())

	two := mustAdd(t, one, "B")
	assert.Equal(t, []string{"A"}, one.Labels())
	assert.Equal(t, []string{"A", "B"}, two.Labels())
}

func TestAddDuplicateLabel(t *testing.T) {
	r := mustAdd(t, NewRegistry(), "BAE")
	_, err := r.Add("BAE", []float64{2}, []float64{0.5}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDuplicateLabel)
	assert.Contains(t, err.Error(), "BAE")
}

func TestAddValidatesLengths(t *testing.T) {
	_, err := NewRegistry().Add("A", []float64{1, 2}, []float64{0.1}, nil)
	assert.ErrorIs(t, err, core.ErrLengthMismatch)

	_, err = NewRegistry().Add("A", []float64{1, 2}, []float64{0.1, 0.2}, []float64{0.1})
	assert.ErrorIs(t, err, core.ErrLengthMismatch)

	_, err = NewRegistry().Add("", []float64{1}, []float64{0.1}, nil)
	assert.ErrorIs(t, err, core.ErrConfiguration)

	_, err = NewRegistry().Add("A", []float64{0}, []float64{0.1}, nil)
	assert.ErrorIs(t, err, core.ErrInvalidSample)
}

func TestGet(t *testing.T) {
	r, err := NewRegistry().Add("QAE", []float64{1, 2}, []float64{0.3, 0.2}, []float64{0.01, 0.02})
	require.NoError(t, err)

	x, errs, stds, err := r.Get("QAE")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, x)
	assert.Equal(t, []float64{0.3, 0.2}, errs)
	assert.Equal(t, []float64{0.01, 0.02}, stds)

	// returned slices are copies
	x[0] = 42
	x2, _, _, _ := r.Get("QAE")
	assert.Equal(t, 1.0, x2[0])

	_, _, _, err = r.Get("missing")
	assert.ErrorIs(t, err, core.ErrLabelNotFound)
}

func TestAddCopiesInput(t *testing.T) {
	x := []float64{1, 2}
	r, err := NewRegistry().Add("A", x, []float64{0.1, 0.2}, nil)
	require.NoError(t, err)
	x[0] = 99
	c, err := r.Curve("A")
	require.NoError(t, err)
	assert.Equal(t, 1.0, c.X[0])
	assert.False(t, c.HasStds())
}

// TestJoinPreservesOrder tests join([A,B],[C]) yields A, B, C
func TestJoinPreservesOrder(t *testing.T) {
	ab := mustAdd(t, mustAdd(t, NewRegistry(), "A"), "B")
	c := mustAdd(t, NewRegistry(), "C")

	joined, err := Join(ab, c)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, joined.Labels())
	assert.Equal(t, []string{"A", "B"}, ab.Labels(), "inputs are unchanged")
}

func TestJoinCollision(t *testing.T) {
	ab := mustAdd(t, mustAdd(t, NewRegistry(), "A"), "B")
	bc := mustAdd(t, mustAdd(t, NewRegistry(), "B"), "C")

	_, err := Join(ab, bc)
	assert.ErrorIs(t, err, core.ErrDuplicateLabel)
}

func TestJoinEmpty(t *testing.T) {
	joined, err := Join()
	require.NoError(t, err)
	assert.Zero(t, joined.Len())

	var zero Registry
	joined, err = Join(zero, mustAdd(t, zero, "A"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, joined.Labels())
}
