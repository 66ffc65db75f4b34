// Copyright (c) 2025 BVK Chaitanya

package tracker

import (
	"time"

	"github.com/bvk/supplybot/seller"
	"github.com/google/uuid"
)

type Kind int

const (
	// KindNoUpdate is published for ticks without any newly available dates.
	KindNoUpdate Kind = iota

	// KindChanges is published when one or more dates became available.
	KindChanges

	// KindEndOfStream is the final message of a tracker.
	KindEndOfStream
)

func (k Kind) String() string {
	switch k {
	case KindNoUpdate:
		return "no-update"
	case KindChanges:
		return "changes"
	case KindEndOfStream:
		return "end-of-stream"
	}
	return "unknown"
}

// SupplyUpdate lists the dates of a supply that became available.
type SupplyUpdate struct {
	Supply *seller.Supply
	Costs  []*seller.Cost
}

// Message is the value published to the tracker subscribers.
type Message struct {
	ID   uuid.UUID
	At   time.Time
	Kind Kind

	// Changes is keyed by the preorder id. Only set for KindChanges.
	Changes map[int64]*SupplyUpdate
}

func newMessage(kind Kind, changes map[int64]*SupplyUpdate) *Message {
	return &Message{
		ID:      uuid.New(),
		At:      time.Now(),
		Kind:    kind,
		Changes: changes,
	}
}
