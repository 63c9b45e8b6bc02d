package queryServer

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Layr-Labs/delegate-tracker/internal/config"
	"github.com/Layr-Labs/delegate-tracker/internal/tests"
	"github.com/Layr-Labs/delegate-tracker/pkg/collaborators"
	"github.com/Layr-Labs/delegate-tracker/pkg/delegationAggregator"
	"github.com/Layr-Labs/delegate-tracker/pkg/delegationQuery"
	"github.com/Layr-Labs/delegate-tracker/pkg/export"
	"github.com/Layr-Labs/delegate-tracker/pkg/ledger"
	"github.com/Layr-Labs/delegate-tracker/pkg/ledgerBuilder"
	"github.com/Layr-Labs/delegate-tracker/pkg/logger"
	"github.com/Layr-Labs/delegate-tracker/pkg/metrics"
	"github.com/Layr-Labs/delegate-tracker/pkg/parser"
	"github.com/Layr-Labs/delegate-tracker/pkg/roster"
	"github.com/stretchr/testify/assert"
)

const (
	contractA = "0x1111111111111111111111111111111111111111"
	contractB = "0x2222222222222222222222222222222222222222"
	delegate  = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
)

func setup(t *testing.T) *httptest.Server {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	assert.Nil(t, err)

	lg := ledger.NewLedger()
	for _, e := range []*parser.DelegationEvent{
		tests.NewDelegationEvent(contractA, delegate, "2023-01-01", "100"),
		tests.NewDelegationEvent(contractA, delegate, "2023-01-03", "-40"),
	} {
		assert.Nil(t, lg.Apply(e))
	}
	lg.Freeze()

	r := roster.NewRoster([]*roster.DelegateRecord{
		{Name: "Alice", ContractAddress: contractA, Committee: "Ecosystem"},
		{Name: "Bob", ContractAddress: contractB, Committee: "Governance"},
	}, l)
	agg := delegationAggregator.NewDelegationAggregator(r, lg, config.RosterWindowPolicy_Ignore, l)
	driver := delegationQuery.NewQueryDriver(agg, &delegationQuery.QueryDriverConfig{Source: "http"}, metrics.NewNoopMetricsSink(), l,
		delegationQuery.WithClock(func() time.Time { return tests.MustParseDay("2023-01-03") }),
	)

	report := &ledgerBuilder.BuildReport{
		FailedContracts: []*collaborators.CollaboratorUnavailableError{
			collaborators.NewCollaboratorUnavailableError(collaborators.Collaborator_Etherscan, contractB, io.ErrUnexpectedEOF),
		},
	}

	server := NewQueryServer(driver, report, &QueryServerConfig{}, metrics.NewNoopMetricsSink(), l)
	return httptest.NewServer(server.Handler())
}

func get(t *testing.T, url string) (*http.Response, string) {
	res, err := http.Get(url)
	assert.Nil(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	assert.Nil(t, err)
	return res, string(body)
}

func Test_QueryServer(t *testing.T) {
	srv := setup(t)
	defer srv.Close()

	t.Run("Should report health", func(t *testing.T) {
		res, body := get(t, srv.URL+"/v1/health")
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Contains(t, body, `"status":"ok"`)
	})
	t.Run("Should return ranked results for a range in date order", func(t *testing.T) {
		res, body := get(t, srv.URL+"/v1/delegations?query=2023-01-01+to+2023-01-03")
		assert.Equal(t, http.StatusOK, res.StatusCode)

		var parsed struct {
			RunId           string   `json:"runId"`
			Query           string   `json:"query"`
			FailedContracts []string `json:"failedContracts"`
			Results         map[string][]struct {
				DelegateName string `json:"delegateName"`
				Total        string `json:"total"`
				Rank         int    `json:"rank"`
			} `json:"results"`
		}
		assert.Nil(t, json.Unmarshal([]byte(body), &parsed))
		assert.NotEmpty(t, parsed.RunId)
		assert.Equal(t, "2023-01-01 to 2023-01-03", parsed.Query)
		assert.Equal(t, []string{contractB}, parsed.FailedContracts)
		assert.Len(t, parsed.Results, 3)
		assert.Equal(t, "60", parsed.Results["2023-01-03"][0].Total)
		assert.Equal(t, 1, parsed.Results["2023-01-03"][0].Rank)

		results := body[strings.Index(body, `"results"`):]
		assert.Less(t, strings.Index(results, "2023-01-01"), strings.Index(results, "2023-01-02"))
		assert.Less(t, strings.Index(results, "2023-01-02"), strings.Index(results, "2023-01-03"))
	})
	t.Run("Should reject invalid input", func(t *testing.T) {
		res, body := get(t, srv.URL+"/v1/delegations?query=yesterday")
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		assert.Contains(t, body, "invalid query")
	})
	t.Run("Should reject a future date unless clamped", func(t *testing.T) {
		res, _ := get(t, srv.URL+"/v1/delegations?query=2023-02-01")
		assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)

		res, body := get(t, srv.URL+"/v1/delegations?query=2023-02-01&clamp=true")
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Contains(t, body, `"clamped":true`)
		assert.Contains(t, body, `"2023-01-03"`)
	})
	t.Run("Should reject an invalid clamp value", func(t *testing.T) {
		res, _ := get(t, srv.URL+"/v1/delegations?query=2023-01-01&clamp=maybe")
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})
	t.Run("Should export results as csv", func(t *testing.T) {
		res, body := get(t, srv.URL+"/v1/delegations.csv?query=2023-01-02+to+2023-01-03")
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, "text/csv", res.Header.Get("Content-Type"))
		assert.Contains(t, res.Header.Get("Content-Disposition"), "delegation_data_2023-01-03.csv")

		rows, err := export.ReadResultsCsv(strings.NewReader(body))
		assert.Nil(t, err)
		assert.Len(t, rows, 4)
		assert.Equal(t, "Alice", rows[0].Delegate)
		assert.Equal(t, "2023-01-02", rows[0].Date)
	})
}
