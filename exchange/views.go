package exchange

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/blackbird014/pooliverse-swapper/pair"
)

// PairView is an immutable snapshot of one pair, safe to hand to consumers
// outside the exchange lock.
type PairView struct {
	Pair        common.Address `json:"pair"`
	Token0      common.Address `json:"token0"`
	Token1      common.Address `json:"token1"`
	Reserve0    *big.Int       `json:"reserve0"`
	Reserve1    *big.Int       `json:"reserve1"`
	TotalSupply *big.Int       `json:"totalSupply"`
	FeeBps      uint16         `json:"feeBps"` // i.e 30 for 0.3%
}

func viewOf(p *pair.Pair) PairView {
	reserve0, reserve1, _ := p.GetReserves()
	return PairView{
		Pair:        p.Address(),
		Token0:      p.Token0(),
		Token1:      p.Token1(),
		Reserve0:    reserve0,
		Reserve1:    reserve1,
		TotalSupply: p.TotalSupply(),
		FeeBps:      p.FeeBps(),
	}
}

// deepCopyView creates a new PairView with its own memory for pointer types
// like *big.Int, so the new state never shares memory with the old one.
func deepCopyView(v PairView) PairView {
	out := v
	if v.Reserve0 != nil {
		out.Reserve0 = new(big.Int).Set(v.Reserve0)
	}
	if v.Reserve1 != nil {
		out.Reserve1 = new(big.Int).Set(v.Reserve1)
	}
	if v.TotalSupply != nil {
		out.TotalSupply = new(big.Int).Set(v.TotalSupply)
	}
	return out
}

// ViewDiff summarizes the changes between two snapshots.
type ViewDiff struct {
	Additions []PairView       `json:"additions,omitempty"`
	Updates   []PairView       `json:"updates,omitempty"`
	Deletions []common.Address `json:"deletions,omitempty"`
}

// IsEmpty returns true if the diff contains no changes.
func (d ViewDiff) IsEmpty() bool {
	return len(d.Additions) == 0 && len(d.Updates) == 0 && len(d.Deletions) == 0
}

// DiffViews calculates the difference between two snapshots. Both lists are
// indexed by pair address for O(1) lookups; reserves and supply are compared
// field by field, which is much cheaper than reflect.DeepEqual.
func DiffViews(old, new []PairView) ViewDiff {
	oldMap := make(map[common.Address]PairView, len(old))
	for _, v := range old {
		oldMap[v.Pair] = v
	}
	newMap := make(map[common.Address]PairView, len(new))
	for _, v := range new {
		newMap[v.Pair] = v
	}

	var diff ViewDiff
	for _, v := range new {
		prev, exists := oldMap[v.Pair]
		if !exists {
			diff.Additions = append(diff.Additions, v)
			continue
		}
		if prev.Reserve0.Cmp(v.Reserve0) != 0 ||
			prev.Reserve1.Cmp(v.Reserve1) != 0 ||
			prev.TotalSupply.Cmp(v.TotalSupply) != 0 {
			diff.Updates = append(diff.Updates, v)
		}
	}
	for _, v := range old {
		if _, exists := newMap[v.Pair]; !exists {
			diff.Deletions = append(diff.Deletions, v.Pair)
		}
	}
	return diff
}

// PatchViews constructs a new snapshot by applying a diff to a previous one.
// Every entry of the result is deep copied, so the output is completely
// independent of both inputs.
func PatchViews(prev []PairView, diff ViewDiff) []PairView {
	newMap := make(map[common.Address]PairView, len(prev))
	order := make([]common.Address, 0, len(prev)+len(diff.Additions))
	for _, v := range prev {
		newMap[v.Pair] = deepCopyView(v)
		order = append(order, v.Pair)
	}

	for _, addr := range diff.Deletions {
		delete(newMap, addr)
	}
	for _, v := range diff.Updates {
		newMap[v.Pair] = deepCopyView(v)
	}
	for _, v := range diff.Additions {
		if _, exists := newMap[v.Pair]; !exists {
			order = append(order, v.Pair)
		}
		newMap[v.Pair] = deepCopyView(v)
	}

	out := make([]PairView, 0, len(newMap))
	for _, addr := range order {
		if v, ok := newMap[addr]; ok {
			out = append(out, v)
		}
	}
	return out
}
