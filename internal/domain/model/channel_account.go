package model

import (
	"time"

	"github.com/google/uuid"
)

type ChannelAccountStatus string

const (
	ChannelAssigned  ChannelAccountStatus = "assigned"
	ChannelSubmitted ChannelAccountStatus = "submitted"
	ChannelReleased  ChannelAccountStatus = "released"
)

// ChannelAccount is a disposable on-chain account used as the source of a
// single transaction's envelope, decoupling sequence-number allocation from
// submission timing on multisig distribution accounts. A channel account is
// bound to exactly one transaction for its whole life (unique constraint on
// TransactionID).
type ChannelAccount struct {
	Address       string               `db:"address"`
	TransactionID uuid.UUID            `db:"transaction_id"`
	Sequence      int64                `db:"sequence"`
	Status        ChannelAccountStatus `db:"status"`
	CreatedAt     time.Time            `db:"created_at"`
	UpdatedAt     time.Time            `db:"updated_at"`
}
