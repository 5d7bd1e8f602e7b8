package realtime

import (
	"github.com/angelmondragon/stockroom-backend/pkg/db/models"
)

// EventType names a live event pushed to tenant subscribers.
type EventType string

const (
	EventUpdate   EventType = "update"
	EventDelete   EventType = "delete"
	EventTransfer EventType = "transfer"
	EventLowStock EventType = "low_stock"
)

// Event is the wire payload. Quantity fields are omitted per event kind.
type Event struct {
	Event     EventType `json:"event"`
	Item      string    `json:"item"`
	Available *int      `json:"available,omitempty"`
	InUse     *int      `json:"in_use,omitempty"`
	Threshold *int      `json:"threshold,omitempty"`
}

func UpdateEvent(item models.Item) Event {
	return quantities(EventUpdate, item)
}

func TransferEvent(item models.Item) Event {
	return quantities(EventTransfer, item)
}

func DeleteEvent(name string) Event {
	return Event{Event: EventDelete, Item: name}
}

// LowStockEvent carries available and threshold only.
func LowStockEvent(item models.Item) Event {
	available, threshold := item.Available, item.Threshold
	return Event{
		Event:     EventLowStock,
		Item:      item.Name,
		Available: &available,
		Threshold: &threshold,
	}
}

func quantities(kind EventType, item models.Item) Event {
	available, inUse, threshold := item.Available, item.InUse, item.Threshold
	return Event{
		Event:     kind,
		Item:      item.Name,
		Available: &available,
		InUse:     &inUse,
		Threshold: &threshold,
	}
}
