package jsonstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qaebench/domain/core"
	"qaebench/domain/estimation"
	"qaebench/internal/testkit"
)

func TestStoreRoundTripKeepsOrder(t *testing.T) {
	reg, err := testkit.SampleRegistry("zeta", "BAE", "alpha", "canonical")
	require.NoError(t, err)
	reg, err = reg.Add("thirds", []float64{3, 9}, []float64{1.0 / 3, 2.0 / 3}, nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "curves.json")
	store := NewStore()
	require.NoError(t, store.Save(context.Background(), path, reg))

	loaded, err := store.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "BAE", "alpha", "canonical", "thirds"}, loaded.Labels())
	assert.Equal(t, reg.Curves(), loaded.Curves())
}

func TestMarshalEmptyRegistry(t *testing.T) {
	data, err := Marshal(estimation.NewRegistry())
	require.NoError(t, err)

	reg, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Zero(t, reg.Len())
}

func TestUnmarshalRejectsBadDocuments(t *testing.T) {
	cases := map[string]string{
		"invalid":   `{"curves":`,
		"no curves": `{"format":"qaebench.registry"}`,
		"format":    `{"format":"other","curves":{}}`,
		"version":   `{"version":99,"curves":{}}`,
		"mismatch":  `{"curves":{"A":{"x":[1,2],"errors":[0.1]}}}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal([]byte(doc))
			assert.Error(t, err)
		})
	}

	_, err := Unmarshal([]byte(`{"curves":{"A":{"x":[1,2],"errors":[0.1]}}}`))
	assert.ErrorIs(t, err, core.ErrLengthMismatch)
}

func TestUnmarshalDuplicateKeys(t *testing.T) {
	_, err := Unmarshal([]byte(`{"curves":{"A":{"x":[1],"errors":[1]},"A":{"x":[2],"errors":[2]}}}`))
	assert.ErrorIs(t, err, core.ErrDuplicateLabel)
}

func TestSaveLeavesNoTemporaryFiles(t *testing.T) {
	dir := t.TempDir()
	reg, err := testkit.SampleRegistry("A")
	require.NoError(t, err)
	require.NoError(t, NewStore().Save(context.Background(), filepath.Join(dir, "curves.json"), reg))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, strings.HasPrefix(entries[0].Name(), ".registry-"))
}
