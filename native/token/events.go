package token

import (
	"encoding/hex"

	"github.com/holiman/uint256"

	"tokenvesting/core/types"
)

const (
	EventTypeTransfer = "token.transfer"
	EventTypeMint     = "token.mint"
)

type tokenEvent struct {
	evt *types.Event
}

func (e tokenEvent) EventType() string   { return e.evt.Type }
func (e tokenEvent) Event() *types.Event { return e.evt }

// NewTransferEvent mirrors the ERC-20 Transfer log.
func NewTransferEvent(token, from, to [20]byte, amount *uint256.Int) *types.Event {
	return &types.Event{Type: EventTypeTransfer, Attributes: map[string]string{
		"token":  hexAddr(token),
		"from":   hexAddr(from),
		"to":     hexAddr(to),
		"amount": amount.Dec(),
	}}
}

func NewMintEvent(token, to [20]byte, amount *uint256.Int) *types.Event {
	return &types.Event{Type: EventTypeMint, Attributes: map[string]string{
		"token":  hexAddr(token),
		"to":     hexAddr(to),
		"amount": amount.Dec(),
	}}
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}
