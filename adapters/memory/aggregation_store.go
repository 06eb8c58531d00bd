package memory

import (
	"context"
	"sort"
	"time"

	"factorlens/domain/core"
	"factorlens/ports"
)

// AggregationStore computes the group-by aggregates over an in-memory
// transaction source. The Postgres adapter pushes the same shapes into
// SQL; this one walks the transactions directly.
type AggregationStore struct {
	source *TransactionSource
}

// NewAggregationStore creates a store reading from the given source.
func NewAggregationStore(source *TransactionSource) *AggregationStore {
	return &AggregationStore{source: source}
}

// RevenueByWeekday groups revenue by weekday with distinct-day counts.
func (s *AggregationStore) RevenueByWeekday(ctx context.Context, entityID core.EntityID, start, end time.Time) ([]ports.WeekdayAgg, error) {
	txs, err := s.source.TransactionsForRange(ctx, entityID, start, end)
	if err != nil {
		return nil, err
	}
	type acc struct {
		revenue float64
		txCount int
		days    map[string]struct{}
	}
	byWeekday := make(map[time.Weekday]*acc)
	for _, tx := range txs {
		wd := tx.OccurredAt.Weekday()
		a, ok := byWeekday[wd]
		if !ok {
			a = &acc{days: make(map[string]struct{})}
			byWeekday[wd] = a
		}
		a.revenue += tx.Total
		a.txCount++
		a.days[core.DateKey(tx.OccurredAt)] = struct{}{}
	}
	var out []ports.WeekdayAgg
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		a, ok := byWeekday[wd]
		if !ok {
			continue
		}
		agg := ports.WeekdayAgg{
			Weekday: wd,
			Days:    len(a.days),
			Revenue: a.revenue,
			TxCount: a.txCount,
		}
		if agg.Days > 0 {
			agg.AvgRevenue = a.revenue / float64(agg.Days)
		}
		out = append(out, agg)
	}
	return out, nil
}

// RevenueByHour groups revenue by hour of day.
func (s *AggregationStore) RevenueByHour(ctx context.Context, entityID core.EntityID, start, end time.Time) ([]ports.HourAgg, error) {
	txs, err := s.source.TransactionsForRange(ctx, entityID, start, end)
	if err != nil {
		return nil, err
	}
	type acc struct {
		revenue float64
		txCount int
	}
	byHour := make(map[int]*acc)
	for _, tx := range txs {
		h := tx.OccurredAt.Hour()
		a, ok := byHour[h]
		if !ok {
			a = &acc{}
			byHour[h] = a
		}
		a.revenue += tx.Total
		a.txCount++
	}
	var out []ports.HourAgg
	for h := 0; h < 24; h++ {
		a, ok := byHour[h]
		if !ok {
			continue
		}
		agg := ports.HourAgg{Hour: h, Revenue: a.revenue, TxCount: a.txCount}
		if a.txCount > 0 {
			agg.AvgRevenue = a.revenue / float64(a.txCount)
		}
		out = append(out, agg)
	}
	return out, nil
}

// EmployeeAggregates groups revenue, counts, and distinct working days by
// employee. Transactions without an employee are skipped.
func (s *AggregationStore) EmployeeAggregates(ctx context.Context, entityID core.EntityID, start, end time.Time) ([]ports.EmployeeAgg, error) {
	txs, err := s.source.TransactionsForRange(ctx, entityID, start, end)
	if err != nil {
		return nil, err
	}
	type acc struct {
		revenue float64
		txCount int
		days    map[string]struct{}
	}
	byEmployee := make(map[string]*acc)
	for _, tx := range txs {
		if tx.EmployeeID == "" {
			continue
		}
		a, ok := byEmployee[tx.EmployeeID]
		if !ok {
			a = &acc{days: make(map[string]struct{})}
			byEmployee[tx.EmployeeID] = a
		}
		a.revenue += tx.Total
		a.txCount++
		a.days[core.DateKey(tx.OccurredAt)] = struct{}{}
	}
	var out []ports.EmployeeAgg
	for id, a := range byEmployee {
		agg := ports.EmployeeAgg{
			EmployeeID: id,
			TxCount:    a.txCount,
			Revenue:    a.revenue,
			Shifts:     len(a.days),
		}
		if a.txCount > 0 {
			agg.AvgTicket = a.revenue / float64(a.txCount)
		}
		out = append(out, agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

// ItemCounts returns the top items by transaction count.
func (s *AggregationStore) ItemCounts(ctx context.Context, entityID core.EntityID, start, end time.Time, limit int) ([]ports.ItemAgg, error) {
	txs, err := s.source.TransactionsForRange(ctx, entityID, start, end)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, tx := range txs {
		seen := make(map[string]struct{})
		for _, item := range tx.Items {
			if _, dup := seen[item.Name]; dup {
				continue
			}
			seen[item.Name] = struct{}{}
			counts[item.Name]++
		}
	}
	var out []ports.ItemAgg
	for name, n := range counts {
		out = append(out, ports.ItemAgg{Item: name, TxCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TxCount != out[j].TxCount {
			return out[i].TxCount > out[j].TxCount
		}
		return out[i].Item < out[j].Item
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ItemPairCounts returns the top co-occurring item pairs. Pairs are
// ordered lexically so (a,b) and (b,a) count as one pair.
func (s *AggregationStore) ItemPairCounts(ctx context.Context, entityID core.EntityID, start, end time.Time, limit int) ([]ports.ItemPairAgg, error) {
	txs, err := s.source.TransactionsForRange(ctx, entityID, start, end)
	if err != nil {
		return nil, err
	}
	type pair struct{ a, b string }
	counts := make(map[pair]int)
	for _, tx := range txs {
		names := make([]string, 0, len(tx.Items))
		seen := make(map[string]struct{})
		for _, item := range tx.Items {
			if _, dup := seen[item.Name]; dup {
				continue
			}
			seen[item.Name] = struct{}{}
			names = append(names, item.Name)
		}
		sort.Strings(names)
		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				counts[pair{names[i], names[j]}]++
			}
		}
	}
	var out []ports.ItemPairAgg
	for p, n := range counts {
		out = append(out, ports.ItemPairAgg{ItemA: p.a, ItemB: p.b, TxCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TxCount != out[j].TxCount {
			return out[i].TxCount > out[j].TxCount
		}
		if out[i].ItemA != out[j].ItemA {
			return out[i].ItemA < out[j].ItemA
		}
		return out[i].ItemB < out[j].ItemB
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CustomerSplit returns the identified-customer counts for the range.
func (s *AggregationStore) CustomerSplit(ctx context.Context, entityID core.EntityID, start, end time.Time) (ports.CustomerAgg, error) {
	txs, err := s.source.TransactionsForRange(ctx, entityID, start, end)
	if err != nil {
		return ports.CustomerAgg{}, err
	}
	visits := make(map[string]int)
	var total int
	for _, tx := range txs {
		if tx.CustomerID == "" {
			continue
		}
		visits[tx.CustomerID]++
		total++
	}
	agg := ports.CustomerAgg{IdentifiedCustomers: len(visits), TotalVisits: total}
	for _, n := range visits {
		if n > 1 {
			agg.ReturningCustomers++
		}
	}
	return agg, nil
}

// DailyRevenue returns one row per day with activity, ordered by date.
func (s *AggregationStore) DailyRevenue(ctx context.Context, entityID core.EntityID, start, end time.Time) ([]ports.DayRevenue, error) {
	txs, err := s.source.TransactionsForRange(ctx, entityID, start, end)
	if err != nil {
		return nil, err
	}
	type acc struct {
		revenue float64
		txCount int
	}
	byDay := make(map[string]*acc)
	for _, tx := range txs {
		key := core.DateKey(tx.OccurredAt)
		a, ok := byDay[key]
		if !ok {
			a = &acc{}
			byDay[key] = a
		}
		a.revenue += tx.Total
		a.txCount++
	}
	keys := make([]string, 0, len(byDay))
	for k := range byDay {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]ports.DayRevenue, 0, len(keys))
	for _, k := range keys {
		date, err := core.ParseDateKey(k)
		if err != nil {
			return nil, err
		}
		a := byDay[k]
		out = append(out, ports.DayRevenue{Date: date, Revenue: a.revenue, TxCount: a.txCount})
	}
	return out, nil
}

// WeekdayBaseline averages per-day revenue over the range's matching
// weekdays.
func (s *AggregationStore) WeekdayBaseline(ctx context.Context, entityID core.EntityID, weekday time.Weekday, start, end time.Time) (ports.BaselineAgg, error) {
	days, err := s.DailyRevenue(ctx, entityID, start, end)
	if err != nil {
		return ports.BaselineAgg{}, err
	}
	var agg ports.BaselineAgg
	var total float64
	for _, d := range days {
		if d.Date.Weekday() != weekday {
			continue
		}
		total += d.Revenue
		agg.Days++
	}
	if agg.Days > 0 {
		agg.AvgRevenue = total / float64(agg.Days)
	}
	return agg, nil
}
