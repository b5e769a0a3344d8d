package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(
		Question{ID: "q1", Prompt: "P1", Options: []Option{{Value: "a", Label: "A"}}},
		Question{ID: "q2", Prompt: "P2", Options: []Option{{Value: "a", Label: "A"}}},
		Question{ID: "q3", Prompt: "P3", Options: []Option{{Value: "a", Label: "A"}}},
	)
	require.NoError(t, err)
	return c
}

func TestBindingTable_LookupAndInverse(t *testing.T) {
	table, err := NewBindingTable(Binding{From: "q1", To: "q2", Kind: "A"})
	require.NoError(t, err)

	k, ok := table.Lookup("q1", "q2")
	assert.True(t, ok)
	assert.Equal(t, Kind("A"), k)

	_, ok = table.Lookup("q2", "q3")
	assert.False(t, ok)

	b, ok := table.ByKind("A")
	assert.True(t, ok)
	assert.Equal(t, "q1", b.From)
	assert.Equal(t, "q2", b.To)
}

func TestBindingTable_RejectsDuplicates(t *testing.T) {
	_, err := NewBindingTable(
		Binding{From: "q1", To: "q2", Kind: "A"},
		Binding{From: "q1", To: "q2", Kind: "B"},
	)
	assert.Error(t, err, "duplicate edge must be rejected")

	_, err = NewBindingTable(
		Binding{From: "q1", To: "q2", Kind: "A"},
		Binding{From: "q2", To: "q3", Kind: "A"},
	)
	assert.Error(t, err, "duplicate kind must be rejected")
}

func TestBindingTable_RejectsIncomplete(t *testing.T) {
	_, err := NewBindingTable(Binding{From: "q1", Kind: "A"})
	assert.Error(t, err)
}

// Forward/reverse consistency: continuing from an interstitial must land
// on the bound To, and going back must land on the bound From.
func TestBindingTable_ForwardReverseConsistency(t *testing.T) {
	c := testCatalog(t)
	table, err := NewBindingTable(
		Binding{From: "q1", To: "q2", Kind: "A"},
		Binding{From: "q2", To: "q3", Kind: "B"},
	)
	require.NoError(t, err)
	require.NoError(t, table.Validate(c))

	for _, kind := range []Kind{"A", "B"} {
		b, ok := table.ByKind(kind)
		require.True(t, ok)

		forward, ok := table.Lookup(b.From, b.To)
		assert.True(t, ok)
		assert.Equal(t, kind, forward)
	}
}

func TestBindingTable_ValidateUnknownEndpoint(t *testing.T) {
	c := testCatalog(t)
	table, err := NewBindingTable(Binding{From: "q1", To: "missing", Kind: "A"})
	require.NoError(t, err)

	assert.Error(t, table.Validate(c))
}
