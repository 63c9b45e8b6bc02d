// Package delegationLogParser decodes raw Lock and Free event logs emitted by
// vote delegate contracts into signed, day-bucketed delegation events.
package delegationLogParser

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/Layr-Labs/delegate-tracker/pkg/parser"
	"github.com/Layr-Labs/delegate-tracker/pkg/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// keccak256("Lock(address,uint256)") and keccak256("Free(address,uint256)")
var (
	LockEventTopic = common.HexToHash("0x625fed9875dada8643f2418b838ae0bc78d9a148a18eee4ee1979ff0f3f5d427")
	FreeEventTopic = common.HexToHash("0xce6c5af8fd109993cb40da4d5dc9e4dd8e61bc2e48f1e3901472141e4f56f293")
)

// wei -> ether
const etherExponent = -18

// EventTopic returns the topic0 hash for the given event type.
func EventTopic(eventType parser.EventType) (common.Hash, error) {
	switch eventType {
	case parser.EventType_Lock:
		return LockEventTopic, nil
	case parser.EventType_Free:
		return FreeEventTopic, nil
	}
	return common.Hash{}, fmt.Errorf("unsupported event type '%s'", eventType)
}

// DecodeError is returned when a raw log cannot be turned into a DelegationEvent.
// Field names the offending log field.
type DecodeError struct {
	Field           string
	Value           string
	TransactionHash string
	Reason          string
	Err             error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("failed to decode log field '%s' (value '%s'): %s", e.Field, e.Value, e.Reason)
	if e.TransactionHash != "" {
		msg = fmt.Sprintf("%s [tx %s]", msg, e.TransactionHash)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DelegationLogParser turns raw Lock/Free logs into DelegationEvents.
type DelegationLogParser struct {
	logger *zap.Logger
}

func NewDelegationLogParser(l *zap.Logger) *DelegationLogParser {
	return &DelegationLogParser{
		logger: l,
	}
}

// DecodeLog decodes a single raw log emitted by contractAddress.
//
// Parameters:
//   - contractAddress: the contract the log was requested for; the log's own address is used when empty
//   - lg: the raw log
//
// Returns:
//   - *parser.DelegationEvent: the decoded event
//   - error: a *DecodeError when any required field is malformed or the event is not Lock/Free
func (p *DelegationLogParser) DecodeLog(contractAddress string, lg *parser.RawLog) (*parser.DelegationEvent, error) {
	if lg == nil {
		return nil, &DecodeError{Field: "log", Reason: "log is nil"}
	}
	if contractAddress == "" {
		contractAddress = lg.Address
	}

	newErr := func(field string, value string, reason string, err error) *DecodeError {
		return &DecodeError{
			Field:           field,
			Value:           value,
			TransactionHash: lg.TransactionHash,
			Reason:          reason,
			Err:             err,
		}
	}

	if len(lg.Topics) == 0 {
		return nil, newErr("topics[0]", "", "log has no topics", nil)
	}
	eventType, err := decodeEventType(lg.Topics[0])
	if err != nil {
		return nil, newErr("topics[0]", lg.Topics[0], err.Error(), nil)
	}

	if len(lg.Topics) < 2 {
		return nil, newErr("topics[1]", "", "log has no indexed delegate topic", nil)
	}
	delegate, err := decodeTopicAddress(lg.Topics[1])
	if err != nil {
		return nil, newErr("topics[1]", lg.Topics[1], "invalid indexed address", err)
	}

	wei, err := decodeHexBigInt(lg.Data)
	if err != nil {
		return nil, newErr("data", lg.Data, "invalid wei amount", err)
	}
	amount := decimal.NewFromBigInt(wei, etherExponent)
	if eventType == parser.EventType_Free {
		amount = amount.Neg()
	}

	timestamp, err := decodeHexUint64(lg.TimeStamp, true)
	if err != nil {
		return nil, newErr("timeStamp", lg.TimeStamp, "invalid block timestamp", err)
	}

	blockNumber, err := decodeHexUint64(lg.BlockNumber, false)
	if err != nil {
		return nil, newErr("blockNumber", lg.BlockNumber, "invalid block number", err)
	}
	logIndex, err := decodeHexUint64(lg.LogIndex, false)
	if err != nil {
		return nil, newErr("logIndex", lg.LogIndex, "invalid log index", err)
	}

	return &parser.DelegationEvent{
		ContractAddress: utils.NormalizeAddress(contractAddress),
		DelegateAddress: delegate,
		EventType:       eventType,
		Date:            utils.StartOfDay(time.Unix(int64(timestamp), 0)),
		Amount:          amount,
		BlockNumber:     blockNumber,
		TransactionHash: strings.ToLower(lg.TransactionHash),
		LogIndex:        logIndex,
	}, nil
}

// DecodeLogs decodes a batch of logs for one contract. Records that fail to
// decode are skipped and returned alongside the successfully decoded events.
func (p *DelegationLogParser) DecodeLogs(contractAddress string, logs []*parser.RawLog) ([]*parser.DelegationEvent, []*DecodeError) {
	events := make([]*parser.DelegationEvent, 0, len(logs))
	decodeErrors := make([]*DecodeError, 0)

	for i, lg := range logs {
		event, err := p.DecodeLog(contractAddress, lg)
		if err != nil {
			decodeErr, ok := err.(*DecodeError)
			if !ok {
				decodeErr = &DecodeError{Field: "log", Reason: "unexpected error", Err: err}
			}
			p.logger.Sugar().Warnw("Skipping log that failed to decode",
				zap.String("contractAddress", contractAddress),
				zap.Int("index", i),
				zap.Error(decodeErr),
			)
			decodeErrors = append(decodeErrors, decodeErr)
			continue
		}
		events = append(events, event)
	}
	p.logger.Sugar().Debugw("Decoded delegation logs",
		zap.String("contractAddress", contractAddress),
		zap.Int("decoded", len(events)),
		zap.Int("skipped", len(decodeErrors)),
	)
	return events, decodeErrors
}

func decodeEventType(topic string) (parser.EventType, error) {
	b, err := hexutil.Decode(topic)
	if err != nil {
		return "", fmt.Errorf("invalid event signature: %v", err)
	}
	if len(b) != common.HashLength {
		return "", fmt.Errorf("event signature must be %d bytes, got %d", common.HashLength, len(b))
	}

	switch common.BytesToHash(b) {
	case LockEventTopic:
		return parser.EventType_Lock, nil
	case FreeEventTopic:
		return parser.EventType_Free, nil
	}
	return "", fmt.Errorf("unrecognized event")
}

// decodeTopicAddress takes the low 20 bytes of a left padded indexed topic.
func decodeTopicAddress(topic string) (string, error) {
	b, err := hexutil.Decode(topic)
	if err != nil {
		return "", err
	}
	if len(b) < common.AddressLength {
		return "", fmt.Errorf("topic is %d bytes, need at least %d", len(b), common.AddressLength)
	}
	addr := common.BytesToAddress(b[len(b)-common.AddressLength:])
	return strings.ToLower(addr.Hex()), nil
}

func decodeHexBigInt(value string) (*big.Int, error) {
	digits, err := stripHexPrefix(value)
	if err != nil {
		return nil, err
	}
	if digits == "" {
		return nil, fmt.Errorf("empty value")
	}
	if !isHexDigits(digits) {
		return nil, fmt.Errorf("not a hex number")
	}
	n, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return nil, fmt.Errorf("not a hex number")
	}
	return n, nil
}

// decodeHexUint64 parses a hex quantity. Optional values may be absent or "0x",
// which the block explorer uses for zero.
func decodeHexUint64(value string, required bool) (uint64, error) {
	digits, err := stripHexPrefix(value)
	if err != nil {
		return 0, err
	}
	if digits == "" {
		if required {
			return 0, fmt.Errorf("empty value")
		}
		return 0, nil
	}
	n, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, err
	}
	if n > uint64(1<<63-1) {
		return 0, fmt.Errorf("value overflows int64")
	}
	return n, nil
}

func stripHexPrefix(value string) (string, error) {
	value = strings.TrimSpace(value)
	if len(value) >= 2 && (value[:2] == "0x" || value[:2] == "0X") {
		return value[2:], nil
	}
	if value == "" {
		return "", nil
	}
	return "", fmt.Errorf("missing 0x prefix")
}

func isHexDigits(s string) bool {
	for _, c := range s {
		isDigit := c >= '0' && c <= '9'
		isLower := c >= 'a' && c <= 'f'
		isUpper := c >= 'A' && c <= 'F'
		if !isDigit && !isLower && !isUpper {
			return false
		}
	}
	return true
}
