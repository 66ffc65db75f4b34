// Copyright (c) 2025 BVK Chaitanya

package tracker

import (
	"maps"
	"slices"
	"strings"

	"github.com/bvk/supplybot/seller"
)

// Ledger is the last known acceptance costs of every tracked supply, keyed by
// preorder id and then by date.
type Ledger map[int64]map[string]*seller.Cost

// Clone returns a deep copy of the ledger.
func (l Ledger) Clone() Ledger {
	c := make(Ledger, len(l))
	for id, dates := range l {
		m := make(map[string]*seller.Cost, len(dates))
		for date, cost := range dates {
			v := *cost
			m[date] = &v
		}
		c[id] = m
	}
	return c
}

// update merges a new poll result into the ledger and returns the dates that
// became available since the previous poll. Supplies missing from the lookup
// are removed. Newly seen supplies are recorded without reporting any dates.
func (l Ledger) update(lookup map[int64]*seller.Supply, costs map[int64][]*seller.Cost) map[int64]*SupplyUpdate {
	maps.DeleteFunc(l, func(id int64, _ map[string]*seller.Cost) bool {
		_, ok := lookup[id]
		return !ok
	})

	updates := make(map[int64]*SupplyUpdate)
	for id, list := range costs {
		supply, ok := lookup[id]
		if !ok {
			continue
		}

		dates := make(map[string]*seller.Cost, len(list))
		for _, c := range list {
			if c != nil {
				dates[c.Date] = c
			}
		}

		old, ok := l[id]
		l[id] = dates
		if !ok {
			continue
		}

		for date, prev := range old {
			cur, ok := dates[date]
			if !ok {
				continue
			}
			if prev.Coefficient.IsNegative() && !cur.Coefficient.IsNegative() {
				u, ok := updates[id]
				if !ok {
					u = &SupplyUpdate{Supply: supply}
					updates[id] = u
				}
				u.Costs = append(u.Costs, cur)
			}
		}
	}
	for _, u := range updates {
		slices.SortFunc(u.Costs, func(a, b *seller.Cost) int {
			return strings.Compare(a.Date, b.Date)
		})
	}
	return updates
}
