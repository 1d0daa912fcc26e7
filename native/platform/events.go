package platform

import (
	"encoding/hex"
	"strconv"

	"ewill/core/types"
)

const (
	EventTypeWillCreated      = "platform.will_created"
	EventTypeWillStateUpdated = "platform.will_state_updated"
	EventTypeWillRefreshed    = "platform.will_refreshed"
	EventTypeWillProlonged    = "platform.will_prolonged"
)

// WillCreatedEvent is emitted once when a will record is first stored.
type WillCreatedEvent struct {
	WillID    [32]byte
	Owner     types.Address
	Provider  types.Address
	ValidTill int64
}

func (e *WillCreatedEvent) EventType() string { return EventTypeWillCreated }

func (e *WillCreatedEvent) Event() *types.Event {
	return &types.Event{
		Type: EventTypeWillCreated,
		Attributes: map[string]string{
			"willId":    hex.EncodeToString(e.WillID[:]),
			"owner":     e.Owner.Hex(),
			"provider":  e.Provider.Hex(),
			"validTill": strconv.FormatInt(e.ValidTill, 10),
		},
	}
}

// WillStateUpdatedEvent is emitted on every lifecycle transition, including
// the initial one to the created state.
type WillStateUpdatedEvent struct {
	WillID   [32]byte
	Owner    types.Address
	NewState WillState
}

func (e *WillStateUpdatedEvent) EventType() string { return EventTypeWillStateUpdated }

func (e *WillStateUpdatedEvent) Event() *types.Event {
	return &types.Event{
		Type: EventTypeWillStateUpdated,
		Attributes: map[string]string{
			"willId": hex.EncodeToString(e.WillID[:]),
			"owner":  e.Owner.Hex(),
			"state":  e.NewState.String(),
		},
	}
}

// WillRefreshedEvent is emitted when a service period is confirmed and one
// period's worth of prepaid fees vests to the provider.
type WillRefreshedEvent struct {
	WillID      [32]byte
	Provider    types.Address
	RefreshedAt int64
}

func (e *WillRefreshedEvent) EventType() string { return EventTypeWillRefreshed }

func (e *WillRefreshedEvent) Event() *types.Event {
	return &types.Event{
		Type: EventTypeWillRefreshed,
		Attributes: map[string]string{
			"willId":      hex.EncodeToString(e.WillID[:]),
			"provider":    e.Provider.Hex(),
			"refreshedAt": strconv.FormatInt(e.RefreshedAt, 10),
		},
	}
}

// WillProlongedEvent is emitted when coverage is extended by additional
// prepaid years.
type WillProlongedEvent struct {
	WillID    [32]byte
	Owner     types.Address
	Years     uint64
	ValidTill int64
}

func (e *WillProlongedEvent) EventType() string { return EventTypeWillProlonged }

func (e *WillProlongedEvent) Event() *types.Event {
	return &types.Event{
		Type: EventTypeWillProlonged,
		Attributes: map[string]string{
			"willId":    hex.EncodeToString(e.WillID[:]),
			"owner":     e.Owner.Hex(),
			"years":     strconv.FormatUint(e.Years, 10),
			"validTill": strconv.FormatInt(e.ValidTill, 10),
		},
	}
}
