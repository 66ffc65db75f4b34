// Copyright (c) 2025 BVK Chaitanya

package tracker

import (
	"testing"

	"github.com/bvk/supplybot/seller"
	"github.com/shopspring/decimal"
)

func newSupply(id int64, warehouse string) *seller.Supply {
	return &seller.Supply{PreorderID: &id, WarehouseName: warehouse}
}

func newCost(date, coefficient string) *seller.Cost {
	return &seller.Cost{Date: date, Coefficient: decimal.RequireFromString(coefficient)}
}

func lookupOf(supplies ...*seller.Supply) map[int64]*seller.Supply {
	m := make(map[int64]*seller.Supply)
	for _, s := range supplies {
		m[*s.PreorderID] = s
	}
	return m
}

func TestLedgerExample(t *testing.T) {
	a, b := newSupply(101, "A"), newSupply(102, "B")

	ledger := Ledger{101: {"2024-01-01": newCost("2024-01-01", "-1")}}
	changes := ledger.update(lookupOf(a, b), map[int64][]*seller.Cost{
		101: {newCost("2024-01-01", "0.5")},
		102: {newCost("2024-01-01", "-1")},
	})
	if len(changes) != 1 {
		t.Fatalf("want one update, got %d", len(changes))
	}
	u, ok := changes[101]
	if !ok || u.Supply != a || len(u.Costs) != 1 {
		t.Fatalf("unexpected update %+v", u)
	}
	if c := u.Costs[0]; c.Date != "2024-01-01" || !c.Coefficient.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("unexpected cost %+v", c)
	}
	if _, ok := ledger[102]; !ok {
		t.Fatalf("first seen supply must be recorded")
	}

	changes = ledger.update(lookupOf(b), map[int64][]*seller.Cost{
		102: {newCost("2024-01-01", "-1")},
	})
	if len(changes) != 0 {
		t.Fatalf("want no updates, got %v", changes)
	}
	if len(ledger) != 1 {
		t.Fatalf("want only supply 102 in the ledger, got %d entries", len(ledger))
	}
	if _, ok := ledger[101]; ok {
		t.Fatalf("supply 101 must be purged")
	}
}

func TestLedgerTransitions(t *testing.T) {
	tests := []struct {
		old, cur string
		want     bool
	}{
		{"-1", "0", true},
		{"-1", "0.5", true},
		{"-0.01", "3", true},
		{"5", "3", false},
		{"0", "-1", false},
		{"-1", "-2", false},
		{"0", "0", false},
		{"1", "1", false},
	}
	supply := newSupply(1, "W")
	for _, test := range tests {
		ledger := Ledger{1: {"d": newCost("d", test.old)}}
		changes := ledger.update(lookupOf(supply), map[int64][]*seller.Cost{
			1: {newCost("d", test.cur)},
		})
		if got := len(changes) == 1; got != test.want {
			t.Errorf("%s -> %s: want update %t, got %t", test.old, test.cur, test.want, got)
		}
		if cur := ledger[1]["d"]; !cur.Coefficient.Equal(decimal.RequireFromString(test.cur)) {
			t.Errorf("%s -> %s: ledger must hold the new value, got %s", test.old, test.cur, cur.Coefficient)
		}
	}
}

func TestLedgerNewDatesDoNotReport(t *testing.T) {
	supply := newSupply(1, "W")
	ledger := Ledger{1: {"d1": newCost("d1", "-1")}}

	changes := ledger.update(lookupOf(supply), map[int64][]*seller.Cost{
		1: {newCost("d2", "1")},
	})
	if len(changes) != 0 {
		t.Fatalf("absent to present must not report, got %v", changes)
	}
	if _, ok := ledger[1]["d1"]; ok {
		t.Fatalf("per-date map must be replaced wholesale")
	}
}

func TestLedgerFirstInsertion(t *testing.T) {
	supply := newSupply(7, "W")
	ledger := make(Ledger)

	changes := ledger.update(lookupOf(supply), map[int64][]*seller.Cost{
		7: {newCost("d1", "1"), newCost("d2", "0"), newCost("d3", "-1")},
	})
	if len(changes) != 0 {
		t.Fatalf("first insertion must not report, got %v", changes)
	}
	if n := len(ledger[7]); n != 3 {
		t.Fatalf("want 3 dates, got %d", n)
	}
}

func TestLedgerIDSet(t *testing.T) {
	ledger := make(Ledger)
	rounds := [][]int64{
		{1, 2, 3},
		{2, 3, 4},
		{5},
		{5, 1},
	}
	for i, ids := range rounds {
		var supplies []*seller.Supply
		costs := make(map[int64][]*seller.Cost)
		for _, id := range ids {
			supplies = append(supplies, newSupply(id, "W"))
			costs[id] = []*seller.Cost{newCost("d", "-1")}
		}
		ledger.update(lookupOf(supplies...), costs)

		if len(ledger) != len(ids) {
			t.Fatalf("round %d: want %d ids, got %d", i, len(ids), len(ledger))
		}
		for _, id := range ids {
			if _, ok := ledger[id]; !ok {
				t.Fatalf("round %d: id %d is missing", i, id)
			}
		}
	}
}

func TestLedgerUpdateOrder(t *testing.T) {
	supply := newSupply(1, "W")
	ledger := Ledger{1: {
		"2024-01-03": newCost("2024-01-03", "-1"),
		"2024-01-01": newCost("2024-01-01", "-1"),
		"2024-01-02": newCost("2024-01-02", "-1"),
	}}
	changes := ledger.update(lookupOf(supply), map[int64][]*seller.Cost{
		1: {newCost("2024-01-03", "1"), newCost("2024-01-01", "1"), newCost("2024-01-02", "1")},
	})
	costs := changes[1].Costs
	if len(costs) != 3 || costs[0].Date != "2024-01-01" || costs[2].Date != "2024-01-03" {
		t.Fatalf("want costs ordered by date, got %v", costs)
	}
}

func TestLedgerClone(t *testing.T) {
	ledger := Ledger{1: {"d": newCost("d", "-1")}}
	c := ledger.Clone()
	c[1]["d"].Coefficient = decimal.NewFromInt(5)
	delete(c, 1)

	if cur := ledger[1]["d"]; !cur.Coefficient.Equal(decimal.NewFromInt(-1)) {
		t.Fatalf("clone must not alias the ledger")
	}
}

func TestLedgerNullCosts(t *testing.T) {
	supply := newSupply(1, "W")
	ledger := Ledger{1: {"d": newCost("d", "-1")}}
	changes := ledger.update(lookupOf(supply), map[int64][]*seller.Cost{
		1: {nil, newCost("d", "1"), nil},
	})
	if u := changes[1]; u == nil || len(u.Costs) != 1 || u.Costs[0].Date != "d" {
		t.Fatalf("unexpected changes %+v", changes)
	}
	if n := len(ledger[1]); n != 1 {
		t.Fatalf("null costs must not be recorded, got %d dates", n)
	}
}
