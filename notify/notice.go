// Copyright (c) 2025 BVK Chaitanya

package notify

import (
	"context"
	"fmt"
	"html"
	"slices"
	"strings"
	"time"

	"github.com/bvk/supplybot/seller"
	"github.com/bvk/supplybot/tracker"
)

// Link is a titled url attached to a notice.
type Link struct {
	Text string
	URL  string
}

// Notice is a notification rendered in the forms supported by the delivery
// services.
type Notice struct {
	At    time.Time
	Title string

	// HTML body in the Telegram subset of html.
	HTML string

	// Text is the plain text body.
	Text string

	Links []Link
}

// Notifier delivers notices to the user.
type Notifier interface {
	Notify(ctx context.Context, n *Notice) error
}

const Title = "Обновление поставок"

// FormatChanges renders the newly available dates of a tracker message.
// Supplies are listed in the increasing order of their preorder ids.
func FormatChanges(at time.Time, changes map[int64]*tracker.SupplyUpdate) *Notice {
	ids := make([]int64, 0, len(changes))
	for id := range changes {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var hb, tb strings.Builder
	fmt.Fprintf(&hb, "🔊 <b><i>%s</i></b>\n", html.EscapeString(Title))

	n := &Notice{At: at, Title: Title}
	for _, id := range ids {
		u := changes[id]
		warehouse := u.Supply.WarehouseName

		fmt.Fprintf(&hb, "\n▫️ <b>%s</b>\n", html.EscapeString(warehouse))
		fmt.Fprintf(&tb, "%s\n", warehouse)
		for _, c := range u.Costs {
			fmt.Fprintf(&hb, "Коэффициент: %s\nСтоимость: %s\nДата: %s\n", c.Coefficient, c.Cost, c.ShortDate())
			fmt.Fprintf(&tb, "  %s: коэффициент %s, стоимость %s\n", c.ShortDate(), c.Coefficient, c.Cost)
		}
		n.Links = append(n.Links, Link{Text: warehouse, URL: seller.SupplyURL(id)})
	}
	n.HTML = hb.String()
	n.Text = strings.TrimSuffix(tb.String(), "\n")
	return n
}

// FormatLedger summarizes the tracked supplies with their available dates.
func FormatLedger(ledger tracker.Ledger) string {
	if len(ledger) == 0 {
		return "no supplies are tracked"
	}
	ids := make([]int64, 0, len(ledger))
	for id := range ledger {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var sb strings.Builder
	for _, id := range ids {
		dates := ledger[id]
		var available []string
		for _, c := range dates {
			if c.IsAvailable() {
				available = append(available, c.ShortDate())
			}
		}
		slices.Sort(available)
		fmt.Fprintf(&sb, "%d: %d of %d dates available", id, len(available), len(dates))
		if len(available) > 0 {
			fmt.Fprintf(&sb, " (%s)", strings.Join(available, ", "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
