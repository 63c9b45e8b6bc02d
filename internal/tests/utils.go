package tests

import (
	"embed"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Layr-Labs/delegate-tracker/internal/config"
	"github.com/Layr-Labs/delegate-tracker/pkg/parser"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LockTopic = "0x625fed9875dada8643f2418b838ae0bc78d9a148a18eee4ee1979ff0f3f5d427"
	FreeTopic = "0xce6c5af8fd109993cb40da4d5dc9e4dd8e61bc2e48f1e3901472141e4f56f293"
)

func GetConfig() *config.Config {
	return config.NewConfig()
}

// GetDbConfigFromEnv reads the test database settings. Host is empty when
// no database is available, which database backed tests use to skip.
func GetDbConfigFromEnv() *config.DatabaseConfig {
	port, err := strconv.Atoi(os.Getenv("DELEGATE_TRACKER_DATABASE_PORT"))
	if err != nil {
		port = 5432
	}
	return &config.DatabaseConfig{
		Host:     os.Getenv("DELEGATE_TRACKER_DATABASE_HOST"),
		Port:     port,
		User:     os.Getenv("DELEGATE_TRACKER_DATABASE_USER"),
		Password: os.Getenv("DELEGATE_TRACKER_DATABASE_PASSWORD"),
	}
}

func DatabaseTestsEnabled() bool {
	return GetDbConfigFromEnv().Host != ""
}

func GenerateTestDbName() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("test_%s", strings.ReplaceAll(id.String(), "-", "")), nil
}

func ReplaceEnv(newValues map[string]string, previousValues *map[string]string) {
	for k, v := range newValues {
		(*previousValues)[k] = os.Getenv(k)
		os.Setenv(k, v)
	}
}

func RestoreEnv(previousValues map[string]string) {
	for k, v := range previousValues {
		os.Setenv(k, v)
	}
}

// MustParseDay parses a YYYY-MM-DD string into a UTC day and panics on failure.
func MustParseDay(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

// NewRawLog builds a raw log the way the block explorer returns it.
// ether is a decimal string, e.g. "100" or "0.5".
func NewRawLog(eventType parser.EventType, contract string, delegate string, ether string, ts time.Time) *parser.RawLog {
	topic := LockTopic
	if eventType == parser.EventType_Free {
		topic = FreeTopic
	}
	wei := decimal.RequireFromString(ether).Shift(18).BigInt()

	return &parser.RawLog{
		Address: contract,
		Topics: []string{
			topic,
			"0x" + leftPad(strings.TrimPrefix(strings.ToLower(delegate), "0x"), 64),
		},
		Data:            "0x" + leftPad(wei.Text(16), 64),
		BlockNumber:     fmt.Sprintf("0x%x", 16308190+ts.Unix()%100000),
		TimeStamp:       fmt.Sprintf("0x%x", ts.Unix()),
		LogIndex:        "0x",
		TransactionHash: "0x" + leftPad(big.NewInt(ts.UnixNano()).Text(16), 64),
	}
}

func leftPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// NewDelegationEvent builds an already decoded event; amount is signed ether.
func NewDelegationEvent(contract string, delegate string, day string, amount string) *parser.DelegationEvent {
	eventType := parser.EventType_Lock
	a := decimal.RequireFromString(amount)
	if a.IsNegative() {
		eventType = parser.EventType_Free
	}
	return &parser.DelegationEvent{
		ContractAddress: strings.ToLower(contract),
		DelegateAddress: strings.ToLower(delegate),
		EventType:       eventType,
		Date:            MustParseDay(day),
		Amount:          a,
	}
}

//go:embed testdata
var testData embed.FS

func GetRosterCsvFile() ([]byte, error) {
	return testData.ReadFile("testdata/roster.csv")
}

func GetRosterYamlFile() ([]byte, error) {
	return testData.ReadFile("testdata/roster.yaml")
}

func GetLockLogsResponse() ([]byte, error) {
	return testData.ReadFile("testdata/lockLogsResponse.json")
}

func GetFreeLogsResponse() ([]byte, error) {
	return testData.ReadFile("testdata/freeLogsResponse.json")
}
