package exchange

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func view(pairHex string, reserve0, reserve1, supply int64) PairView {
	return PairView{
		Pair:        common.HexToAddress(pairHex),
		Token0:      tokenA,
		Token1:      tokenB,
		Reserve0:    big.NewInt(reserve0),
		Reserve1:    big.NewInt(reserve1),
		TotalSupply: big.NewInt(supply),
		FeeBps:      30,
	}
}

func TestDiffViews(t *testing.T) {
	testCases := []struct {
		name          string
		old           []PairView
		new           []PairView
		wantAdditions int
		wantUpdates   int
		wantDeletions int
	}{
		{
			name:  "No Changes",
			old:   []PairView{view("0x01", 100, 100, 100)},
			new:   []PairView{view("0x01", 100, 100, 100)},
		},
		{
			name:          "Addition",
			old:           nil,
			new:           []PairView{view("0x01", 100, 100, 100)},
			wantAdditions: 1,
		},
		{
			name:        "Reserve Update",
			old:         []PairView{view("0x01", 100, 100, 100)},
			new:         []PairView{view("0x01", 110, 91, 100)},
			wantUpdates: 1,
		},
		{
			name:        "Supply Update",
			old:         []PairView{view("0x01", 100, 100, 100)},
			new:         []PairView{view("0x01", 100, 100, 200)},
			wantUpdates: 1,
		},
		{
			name:          "Deletion",
			old:           []PairView{view("0x01", 100, 100, 100)},
			new:           nil,
			wantDeletions: 1,
		},
		{
			name:          "Mixed",
			old:           []PairView{view("0x01", 100, 100, 100), view("0x02", 50, 50, 50)},
			new:           []PairView{view("0x01", 120, 84, 100), view("0x03", 7, 7, 7)},
			wantAdditions: 1,
			wantUpdates:   1,
			wantDeletions: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			diff := DiffViews(tc.old, tc.new)
			assert.Len(t, diff.Additions, tc.wantAdditions)
			assert.Len(t, diff.Updates, tc.wantUpdates)
			assert.Len(t, diff.Deletions, tc.wantDeletions)
			assert.Equal(t, tc.wantAdditions+tc.wantUpdates+tc.wantDeletions == 0, diff.IsEmpty())
		})
	}
}

func TestPatchViewsRoundTrip(t *testing.T) {
	old := []PairView{view("0x01", 100, 100, 100), view("0x02", 50, 50, 50)}
	new := []PairView{view("0x01", 120, 84, 100), view("0x03", 7, 7, 7)}

	diff := DiffViews(old, new)
	patched := PatchViews(old, diff)

	require.Len(t, patched, 2)
	byAddr := make(map[common.Address]PairView, len(patched))
	for _, v := range patched {
		byAddr[v.Pair] = v
	}

	got, ok := byAddr[common.HexToAddress("0x01")]
	require.True(t, ok)
	assert.Zero(t, got.Reserve0.Cmp(big.NewInt(120)))
	assert.Zero(t, got.Reserve1.Cmp(big.NewInt(84)))

	_, deleted := byAddr[common.HexToAddress("0x02")]
	assert.False(t, deleted)

	added, ok := byAddr[common.HexToAddress("0x03")]
	require.True(t, ok)
	assert.Zero(t, added.Reserve0.Cmp(big.NewInt(7)))
}

// TestPatchViewsStateIsolation verifies the patched state is a proper deep
// copy of its mutable fields, preventing side effects between states.
func TestPatchViewsStateIsolation(t *testing.T) {
	prev := []PairView{view("0x01", 100, 100, 100)}
	diff := DiffViews(prev, []PairView{view("0x01", 110, 91, 100)})

	patched := PatchViews(prev, diff)
	require.Len(t, patched, 1)

	patched[0].Reserve0.Add(patched[0].Reserve0, big.NewInt(12345))
	assert.Zero(t, prev[0].Reserve0.Cmp(big.NewInt(100)), "mutating the patched state must not affect the previous one")
}

func TestPatchViewsPreservesOrder(t *testing.T) {
	prev := []PairView{view("0x01", 1, 1, 1), view("0x02", 2, 2, 2)}
	diff := ViewDiff{Additions: []PairView{view("0x03", 3, 3, 3)}}

	patched := PatchViews(prev, diff)
	require.Len(t, patched, 3)
	assert.Equal(t, common.HexToAddress("0x01"), patched[0].Pair)
	assert.Equal(t, common.HexToAddress("0x02"), patched[1].Pair)
	assert.Equal(t, common.HexToAddress("0x03"), patched[2].Pair)
}
