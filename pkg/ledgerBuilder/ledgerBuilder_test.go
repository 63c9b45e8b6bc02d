package ledgerBuilder

import (
	"context"
	"net/http"
	"testing"

	"github.com/Layr-Labs/delegate-tracker/internal/tests"
	"github.com/Layr-Labs/delegate-tracker/pkg/clients/etherscan"
	"github.com/Layr-Labs/delegate-tracker/pkg/collaborators"
	"github.com/Layr-Labs/delegate-tracker/pkg/logger"
	"github.com/Layr-Labs/delegate-tracker/pkg/metrics"
	"github.com/Layr-Labs/delegate-tracker/pkg/parser"
	"github.com/Layr-Labs/delegate-tracker/pkg/storage"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const (
	baseUrl = "https://etherscan.test/api"

	contractWithEvents = "0x1111111111111111111111111111111111111111"
	contractFailing    = "0x2222222222222222222222222222222222222222"
	contractEmpty      = "0x3333333333333333333333333333333333333333"

	delegateA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	delegateB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

const noRecordsResponse = `{"status":"0","message":"No records found","result":[]}`

func setup(t *testing.T, workers int) (*LedgerBuilder, *zap.Logger) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	assert.Nil(t, err)

	client := etherscan.NewEtherscanClient(&etherscan.EtherscanClientConfig{
		ApiKey:  "test-key",
		BaseUrl: baseUrl,
	}, &http.Client{Transport: httpmock.DefaultTransport}, l)

	return NewLedgerBuilder(client, &LedgerBuilderConfig{Workers: workers}, metrics.NewNoopMetricsSink(), l), l
}

func registerResponder(t *testing.T) {
	lockBody, err := tests.GetLockLogsResponse()
	assert.Nil(t, err)
	freeBody, err := tests.GetFreeLogsResponse()
	assert.Nil(t, err)

	httpmock.RegisterResponder("GET", baseUrl, func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		switch q.Get("address") {
		case contractWithEvents:
			if q.Get("topic0") == tests.FreeTopic {
				return httpmock.NewStringResponse(200, string(freeBody)), nil
			}
			return httpmock.NewStringResponse(200, string(lockBody)), nil
		case contractFailing:
			return httpmock.NewStringResponse(500, "internal error"), nil
		}
		return httpmock.NewStringResponse(200, noRecordsResponse), nil
	})
}

func Test_Build(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	contracts := []string{contractWithEvents, contractFailing, contractEmpty}

	t.Run("Should build a frozen ledger from Lock and Free logs", func(t *testing.T) {
		httpmock.Reset()
		registerResponder(t)
		builder, _ := setup(t, 1)

		lgr, report, err := builder.Build(context.Background(), contracts)
		assert.Nil(t, err)
		assert.True(t, lgr.IsFrozen())

		assert.Equal(t, "100", lgr.AsOf(contractWithEvents, tests.MustParseDay("2023-01-01")).String())
		assert.Equal(t, "102.5", lgr.AsOf(contractWithEvents, tests.MustParseDay("2023-01-02")).String())
		assert.Equal(t, "62.5", lgr.AsOf(contractWithEvents, tests.MustParseDay("2023-01-03")).String())
		assert.Equal(t, "60", lgr.AsOfDelegate(contractWithEvents, delegateA, tests.MustParseDay("2023-01-03")).String())
		assert.Equal(t, "2.5", lgr.AsOfDelegate(contractWithEvents, delegateB, tests.MustParseDay("2023-01-03")).String())

		assert.Equal(t, Source_Etherscan, report.Source)
		assert.Equal(t, 3, report.Contracts)
		assert.Equal(t, 3, report.EventsDecoded)
		assert.Equal(t, 1, report.SkippedRecords)
		assert.Equal(t, "data", report.DecodeErrors[0].Field)
	})
	t.Run("Should report a contract whose logs could not be retrieved and resolve it to zero", func(t *testing.T) {
		httpmock.Reset()
		registerResponder(t)
		builder, _ := setup(t, 1)

		lgr, report, err := builder.Build(context.Background(), contracts)
		assert.Nil(t, err)

		assert.True(t, report.HasFailures())
		assert.Len(t, report.FailedContracts, 1)
		assert.Equal(t, collaborators.Collaborator_Etherscan, report.FailedContracts[0].Collaborator)
		assert.Equal(t, []string{contractFailing}, report.FailedContractAddresses())

		assert.False(t, lgr.HasContract(contractFailing))
		assert.True(t, lgr.AsOf(contractFailing, tests.MustParseDay("2023-01-03")).IsZero())
	})
	t.Run("Should register a contract with no events", func(t *testing.T) {
		httpmock.Reset()
		registerResponder(t)
		builder, _ := setup(t, 1)

		lgr, _, err := builder.Build(context.Background(), contracts)
		assert.Nil(t, err)
		assert.True(t, lgr.HasContract(contractEmpty))
		assert.True(t, lgr.AsOf(contractEmpty, tests.MustParseDay("2023-01-03")).IsZero())
	})
	t.Run("Should build the same ledger with several workers", func(t *testing.T) {
		httpmock.Reset()
		registerResponder(t)

		sequential, _ := setup(t, 1)
		seqLedger, _, err := sequential.Build(context.Background(), contracts)
		assert.Nil(t, err)

		parallel, _ := setup(t, 4)
		parLedger, parReport, err := parallel.Build(context.Background(), contracts)
		assert.Nil(t, err)

		assert.Equal(t, seqLedger.Contracts(), parLedger.Contracts())
		for _, c := range seqLedger.Contracts() {
			assert.Equal(t, seqLedger.DailyNets(c), parLedger.DailyNets(c))
		}
		assert.Equal(t, 1, parReport.SkippedRecords)
	})
	t.Run("Should fetch a contract listed twice only once", func(t *testing.T) {
		httpmock.Reset()
		registerResponder(t)
		builder, _ := setup(t, 2)

		results := builder.FetchContracts(context.Background(), []string{contractWithEvents, "0x1111111111111111111111111111111111111111"})
		assert.Len(t, results, 1)
		assert.Equal(t, 2, httpmock.GetTotalCallCount())
	})
}

func Test_BuildFromEvents(t *testing.T) {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	events := []*parser.DelegationEvent{
		tests.NewDelegationEvent(contractWithEvents, delegateA, "2023-01-01", "100"),
		tests.NewDelegationEvent(contractWithEvents, delegateA, "2023-01-03", "-40"),
		tests.NewDelegationEvent(contractFailing, delegateB, "2023-01-01", "7"),
	}
	syncs := []*storage.ContractSync{
		{ContractAddress: contractWithEvents},
		{ContractAddress: contractEmpty},
	}

	t.Run("Should build the ledger of synced contracts only", func(t *testing.T) {
		lgr, report, err := BuildFromEvents([]string{contractWithEvents, contractFailing, contractEmpty}, events, syncs, l)
		assert.Nil(t, err)
		assert.True(t, lgr.IsFrozen())

		assert.Equal(t, "60", lgr.AsOf(contractWithEvents, tests.MustParseDay("2023-01-03")).String())
		assert.True(t, lgr.HasContract(contractEmpty))
		assert.False(t, lgr.HasContract(contractFailing))

		assert.Equal(t, Source_Database, report.Source)
		assert.Equal(t, 2, report.EventsDecoded)
		assert.Len(t, report.FailedContracts, 1)
		assert.Equal(t, collaborators.Collaborator_EventStore, report.FailedContracts[0].Collaborator)
	})
}
