package cart

import (
	"context"
	"testing"

	"github.com/ariefcatur/storefront-orders/internal/pgtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepoRoundTrip(t *testing.T) {
	pool := pgtest.Pool(t)
	ctx := context.Background()
	r := &Repo{DB: pool}

	require.NoError(t, r.InsertMissing(ctx, "u1", []Line{
		{ProductID: "p1", Size: "M", Quantity: 2, Selected: true},
		{ProductID: "p2", Quantity: 1, Selected: false},
	}))
	// baris yang sudah ada tidak ditimpa
	require.NoError(t, r.InsertMissing(ctx, "u1", []Line{{ProductID: "p1", Size: "M", Quantity: 9, Selected: true}}))

	lines, err := r.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, lines, 2)

	n, err := r.DeleteUnselected(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = r.DeleteKeys(ctx, "u1", []Key{{ProductID: "p1", Size: "M"}, {ProductID: "nope"}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	lines, err = r.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}
