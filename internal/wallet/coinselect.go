package wallet

import (
	"errors"
	"fmt"
	"sort"

	"github.com/zeroa-labs/lasko-core/internal/chain"
)

// Coin selection errors.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoUTXOs           = errors.New("no UTXOs available")
)

// CoinSelection holds the result of coin selection.
type CoinSelection struct {
	Inputs []chain.UTXO // Selected UTXOs to spend.
	Total  uint64       // Sum of selected input values.
	Change uint64       // Change = Total - target.
}

// SelectCoins chooses UTXOs to fund a transaction of the given target amount
// (amount + fee). It tries two strategies:
//  1. Single UTXO: the smallest single UTXO covering the target (fewest inputs).
//  2. Largest-first accumulation: greedily adds the largest UTXOs until the
//     target is met.
//
// Returns the strategy that produces the least change (waste).
func SelectCoins(utxos []chain.UTXO, target uint64) (*CoinSelection, error) {
	if len(utxos) == 0 {
		return nil, ErrNoUTXOs
	}
	if target == 0 {
		return nil, fmt.Errorf("target must be positive")
	}

	// Filter out zero-value UTXOs and sort by value ascending.
	candidates := make([]chain.UTXO, 0, len(utxos))
	for _, u := range utxos {
		if u.Value > 0 {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoUTXOs
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Value < candidates[j].Value
	})

	// Strategy 1: Single UTXO — smallest one that covers the target.
	var single *CoinSelection
	for _, u := range candidates {
		if u.Value >= target {
			single = &CoinSelection{
				Inputs: []chain.UTXO{u},
				Total:  u.Value,
				Change: u.Value - target,
			}
			break // Already sorted ascending, first match is smallest.
		}
	}

	// Strategy 2: Largest-first accumulation.
	var accum *CoinSelection
	var selected []chain.UTXO
	var total uint64
	for i := len(candidates) - 1; i >= 0; i-- {
		selected = append(selected, candidates[i])
		total += candidates[i].Value
		if total >= target {
			accum = &CoinSelection{
				Inputs: selected,
				Total:  total,
				Change: total - target,
			}
			break
		}
	}

	switch {
	case single != nil && accum != nil:
		// Prefer whichever produces less change (less waste).
		if single.Change <= accum.Change {
			return single, nil
		}
		return accum, nil
	case single != nil:
		return single, nil
	case accum != nil:
		return accum, nil
	default:
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, totalValue(candidates), target)
	}
}

func totalValue(utxos []chain.UTXO) uint64 {
	var total uint64
	for _, u := range utxos {
		total += u.Value
	}
	return total
}
