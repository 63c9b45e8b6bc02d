// Package parser provides the raw and decoded representations of the
// delegation contract event logs. Raw logs are what the block explorer
// returns; decoded events are what the ledger folds.
package parser

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawLog is a single event log as returned by the log retrieval API.
// Every numeric field is a 0x-prefixed hex string.
type RawLog struct {
	// Address is the contract address that emitted the event
	Address string `json:"address"`
	// Topics holds the event signature hash followed by the indexed arguments
	Topics []string `json:"topics"`
	// Data is the ABI encoded non-indexed argument data
	Data string `json:"data"`
	// BlockNumber is the block the log was emitted in
	BlockNumber string `json:"blockNumber"`
	// TimeStamp is the unix timestamp of the block
	TimeStamp string `json:"timeStamp"`
	// LogIndex is the position of the log in the block
	LogIndex string `json:"logIndex"`
	// TransactionHash is the hash of the transaction that emitted the log
	TransactionHash string `json:"transactionHash"`
}

type EventType string

const (
	EventType_Lock EventType = "Lock"
	EventType_Free EventType = "Free"
)

func (e EventType) String() string {
	return string(e)
}

// DelegationEvent is a decoded Lock or Free event.
type DelegationEvent struct {
	// ContractAddress is the lower-cased vote delegate contract
	ContractAddress string
	// DelegateAddress is the lower-cased address taken from the first indexed topic
	DelegateAddress string
	// EventType is either Lock or Free
	EventType EventType
	// Date is the UTC calendar day of the block timestamp
	Date time.Time
	// Amount is ether-denominated and signed: positive for Lock, negative for Free
	Amount decimal.Decimal
	// BlockNumber, TransactionHash and LogIndex identify the log; they are zero
	// valued when the source did not provide them.
	BlockNumber     uint64
	TransactionHash string
	LogIndex        uint64
}
