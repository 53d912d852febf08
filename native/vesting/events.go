package vesting

import (
	"encoding/hex"
	"strconv"

	"github.com/holiman/uint256"

	"tokenvesting/core/types"
)

const (
	EventTypeOwnerInitialized = "vesting.owner.initialized"
	EventTypeTGEConfigured    = "vesting.tge.configured"
	EventTypePoolsCalculated  = "vesting.pools.calculated"
	EventTypeTGEWithdrawn     = "vesting.tge.withdrawn"
	EventTypeScheduleCreated  = "vesting.schedule.created"
	EventTypeReleased         = "vesting.released"
	EventTypeRevoked          = "vesting.revoked"
)

// vestingEvent adapts a canonical payload to the events.Emitter contract.
type vestingEvent struct {
	evt *types.Event
}

func (e vestingEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e vestingEvent) Event() *types.Event { return e.evt }

// NewScheduleCreatedEvent returns the payload emitted when a schedule is stored.
func NewScheduleCreatedEvent(s *Schedule) *types.Event {
	return newScheduleEvent(EventTypeScheduleCreated, s, nil)
}

// NewReleasedEvent describes a transfer of vested tokens to the beneficiary.
func NewReleasedEvent(s *Schedule, amount *uint256.Int, caller [20]byte) *types.Event {
	evt := newScheduleEvent(EventTypeReleased, s, amount)
	evt.Attributes["caller"] = hexAddr(caller)
	return evt
}

// NewRevokedEvent is emitted once a schedule is revoked; amount is the vested
// portion settled at revocation and unreleased the portion returned.
func NewRevokedEvent(s *Schedule, amount, unreleased *uint256.Int) *types.Event {
	evt := newScheduleEvent(EventTypeRevoked, s, amount)
	evt.Attributes["returned"] = cloneAmount(unreleased).Dec()
	return evt
}

func NewOwnerInitializedEvent(owner [20]byte) *types.Event {
	return &types.Event{Type: EventTypeOwnerInitialized, Attributes: map[string]string{"owner": hexAddr(owner)}}
}

func NewTGEConfiguredEvent(tge TGE) *types.Event {
	return &types.Event{Type: EventTypeTGEConfigured, Attributes: map[string]string{
		CategoryAdvisersPartnerships.String(): strconv.Itoa(int(tge.AdvisersPartnerships)),
		CategoryMarketing.String():            strconv.Itoa(int(tge.Marketing)),
		CategoryReserveFunds.String():         strconv.Itoa(int(tge.ReserveFunds)),
	}}
}

func NewPoolsCalculatedEvent(balance *uint256.Int, pools []*Pool) *types.Event {
	attrs := map[string]string{"balance": cloneAmount(balance).Dec()}
	for _, p := range pools {
		attrs[p.Category.String()+".tgeBank"] = cloneAmount(p.TGEBank).Dec()
		attrs[p.Category.String()+".vestingPool"] = cloneAmount(p.VestingPool).Dec()
	}
	return &types.Event{Type: EventTypePoolsCalculated, Attributes: attrs}
}

func NewTGEWithdrawnEvent(p *Pool, amount *uint256.Int, to [20]byte) *types.Event {
	return &types.Event{Type: EventTypeTGEWithdrawn, Attributes: map[string]string{
		"category":  p.Category.String(),
		"amount":    cloneAmount(amount).Dec(),
		"remaining": cloneAmount(p.TGEBank).Dec(),
		"to":        hexAddr(to),
	}}
}

func newScheduleEvent(eventType string, s *Schedule, amount *uint256.Int) *types.Event {
	attrs := make(map[string]string)
	if s == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["id"] = "0x" + hex.EncodeToString(s.ID[:])
	attrs["beneficiary"] = hexAddr(s.Beneficiary)
	attrs["category"] = s.Category.String()
	attrs["amountTotal"] = cloneAmount(s.AmountTotal).Dec()
	attrs["released"] = cloneAmount(s.Released).Dec()
	attrs["start"] = strconv.FormatUint(s.Start, 10)
	attrs["cliff"] = strconv.FormatUint(s.Cliff, 10)
	attrs["duration"] = strconv.FormatUint(s.Duration, 10)
	attrs["slicePeriodSeconds"] = strconv.FormatUint(s.SlicePeriodSeconds, 10)
	attrs["revocable"] = strconv.FormatBool(s.Revocable)
	if amount != nil {
		attrs["amount"] = amount.Dec()
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}
