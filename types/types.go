package types

import (
	"time"

	"github.com/google/uuid"

	"github.com/fairwind-labs/mintgate/ledger"
)

// RequestEvent is one pending request pushed to a paired wallet over its
// event channel.
type RequestEvent struct {
	ID         uuid.UUID
	Method     string
	Payload    []byte
	CreateTime time.Time
	Result     chan *ResponseEvent `json:"-"`
}

// ResponseEvent carries the wallet's answer for a RequestEvent of the same ID.
type ResponseEvent struct {
	ID      uuid.UUID
	Payload []byte
	Error   string
}

// ChannelInfo is the gateway-side handle of one wallet event channel.
type ChannelInfo struct {
	ChannelID  uuid.UUID
	Origin     string
	OutBound   chan *RequestEvent
	CreateTime time.Time
}

func NewChannelInfo(origin string, sendEvents chan *RequestEvent) *ChannelInfo {
	return &ChannelInfo{
		ChannelID:  uuid.New(),
		Origin:     origin,
		OutBound:   sendEvents,
		CreateTime: time.Now(),
	}
}

// ConnectedCompleted is the payload of the InitConnect event the relay sends
// once a wallet channel is established.
type ConnectedCompleted struct {
	ChannelID uuid.UUID
}

// SignRequest is the payload of a TransactionSign event.
type SignRequest struct {
	Account ledger.AccountID
	ToSign  []byte
}
