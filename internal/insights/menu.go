package insights

import (
	"context"
	"fmt"
	"time"

	"factorlens/domain/core"
	"factorlens/domain/insight"
)

const (
	menuTopItems = 20
	menuTopPairs = 15
	// Lift thresholds: pairs well above independence are pairing wins;
	// items whose best pair sits well below independence under-attach.
	pairLiftFloor  = 1.2
	attachLiftCeil = 0.8
)

// menuPatterns finds item pairs bought together more often than chance and
// items attaching below expectation, using store-side co-occurrence
// counts.
func (e *Engine) menuPatterns(ctx context.Context, entityID core.EntityID, start, end time.Time) ([]insight.MenuPattern, error) {
	items, err := e.agg.ItemCounts(ctx, entityID, start, end, menuTopItems)
	if err != nil {
		return nil, err
	}
	pairs, err := e.agg.ItemPairCounts(ctx, entityID, start, end, menuTopPairs)
	if err != nil {
		return nil, err
	}
	days, err := e.agg.DailyRevenue(ctx, entityID, start, end)
	if err != nil {
		return nil, err
	}

	totalTx := 0
	for _, d := range days {
		totalTx += d.TxCount
	}
	if totalTx == 0 || len(items) == 0 {
		return nil, nil
	}

	counts := make(map[string]int, len(items))
	for _, it := range items {
		counts[it.Item] = it.TxCount
	}

	var patterns []insight.MenuPattern
	bestLift := make(map[string]float64)
	for _, p := range pairs {
		ca, cb := counts[p.ItemA], counts[p.ItemB]
		if ca == 0 || cb == 0 {
			continue
		}
		lift := float64(p.TxCount) * float64(totalTx) / (float64(ca) * float64(cb))
		if lift > bestLift[p.ItemA] {
			bestLift[p.ItemA] = lift
		}
		if lift > bestLift[p.ItemB] {
			bestLift[p.ItemB] = lift
		}
		if lift >= pairLiftFloor && p.TxCount >= 3 {
			patterns = append(patterns, insight.MenuPattern{
				Kind:           "pair",
				Items:          []string{p.ItemA, p.ItemB},
				Occurrences:    p.TxCount,
				ImpactEstimate: lift,
				Recommendation: fmt.Sprintf("%s and %s sell together %.1fx more than chance; bundle or cross-promote", p.ItemA, p.ItemB, lift),
			})
		}
	}

	for _, it := range items {
		lift, seen := bestLift[it.Item]
		if !seen || lift >= attachLiftCeil {
			continue
		}
		attachPct := 100 * float64(it.TxCount) / float64(totalTx)
		patterns = append(patterns, insight.MenuPattern{
			Kind:           "low_attach",
			Items:          []string{it.Item},
			Occurrences:    it.TxCount,
			AttachRatePct:  attachPct,
			ImpactEstimate: lift,
			Recommendation: fmt.Sprintf("%s rarely pairs with anything (best lift %.2f); train attach prompts or reposition it", it.Item, lift),
		})
	}

	return patterns, nil
}
