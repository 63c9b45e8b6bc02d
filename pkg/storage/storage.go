// Package storage defines the persisted form of decoded delegation events and
// the store interface the sync and query commands share.
package storage

import (
	"context"
	"time"

	"github.com/Layr-Labs/delegate-tracker/pkg/parser"
	"github.com/shopspring/decimal"
)

type DelegationEvent struct {
	Id              uint64 `gorm:"type:serial"`
	ContractAddress string
	DelegateAddress string
	EventType       string
	EventDate       time.Time `gorm:"type:date"`
	Amount          decimal.Decimal `gorm:"type:numeric"`
	BlockNumber     uint64
	TransactionHash string
	LogIndex        uint64
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

func (DelegationEvent) TableName() string {
	return "delegation_events"
}

// ContractSync records the last successful sync of a contract's events.
type ContractSync struct {
	ContractAddress string `gorm:"primaryKey"`
	FromBlock       uint64
	ToBlock         string
	EventCount      uint64
	SyncedAt        time.Time
}

func (ContractSync) TableName() string {
	return "contract_syncs"
}

func NewDelegationEventFromParsed(e *parser.DelegationEvent) *DelegationEvent {
	return &DelegationEvent{
		ContractAddress: e.ContractAddress,
		DelegateAddress: e.DelegateAddress,
		EventType:       e.EventType.String(),
		EventDate:       e.Date,
		Amount:          e.Amount,
		BlockNumber:     e.BlockNumber,
		TransactionHash: e.TransactionHash,
		LogIndex:        e.LogIndex,
	}
}

func (e *DelegationEvent) ToParsed() *parser.DelegationEvent {
	return &parser.DelegationEvent{
		ContractAddress: e.ContractAddress,
		DelegateAddress: e.DelegateAddress,
		EventType:       parser.EventType(e.EventType),
		Date:            time.Date(e.EventDate.Year(), e.EventDate.Month(), e.EventDate.Day(), 0, 0, 0, 0, time.UTC),
		Amount:          e.Amount,
		BlockNumber:     e.BlockNumber,
		TransactionHash: e.TransactionHash,
		LogIndex:        e.LogIndex,
	}
}

type EventStore interface {
	// SaveContractEvents stores every event of a contract and marks it synced.
	// Events already stored are left untouched.
	SaveContractEvents(ctx context.Context, contractAddress string, events []*parser.DelegationEvent, fromBlock uint64, toBlock string) (int64, error)
	ListDelegationEvents(ctx context.Context, contractAddresses []string) ([]*parser.DelegationEvent, error)
	ListContractSyncs(ctx context.Context, contractAddresses []string) ([]*ContractSync, error)
	CountDelegationEvents(ctx context.Context) (uint64, error)
}
