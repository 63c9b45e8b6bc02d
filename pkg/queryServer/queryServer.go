// Package queryServer exposes delegation queries over HTTP. The ledger is
// built once before the server starts and shared read-only by every request.
package queryServer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Layr-Labs/delegate-tracker/pkg/delegationQuery"
	"github.com/Layr-Labs/delegate-tracker/pkg/export"
	"github.com/Layr-Labs/delegate-tracker/pkg/ledgerBuilder"
	"github.com/Layr-Labs/delegate-tracker/pkg/metrics"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// QueryRunner runs a textual date or date range query.
type QueryRunner interface {
	RunInput(ctx context.Context, input string, policy delegationQuery.FutureDatePolicy) (*delegationQuery.QueryResult, error)
}

type QueryServerConfig struct {
	Port int
	// ClampToToday is the default future date policy when a request does not set clamp
	ClampToToday bool
}

type QueryServer struct {
	runner      QueryRunner
	report      *ledgerBuilder.BuildReport
	config      *QueryServerConfig
	metricsSink *metrics.MetricsSink
	logger      *zap.Logger
	server      *http.Server
}

type DelegationsResponse struct {
	RunId           string                          `json:"runId"`
	Query           string                          `json:"query"`
	Clamped         bool                            `json:"clamped"`
	FailedContracts []string                        `json:"failedContracts"`
	Results         *delegationQuery.QueryResultSet `json:"results"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewQueryServer(
	runner QueryRunner,
	report *ledgerBuilder.BuildReport,
	cfg *QueryServerConfig,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *QueryServer {
	if report == nil {
		report = &ledgerBuilder.BuildReport{}
	}
	return &QueryServer{
		runner:      runner,
		report:      report,
		config:      cfg,
		metricsSink: ms,
		logger:      l,
	}
}

func (s *QueryServer) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.withMetrics)

	r.HandleFunc("/v1/health", s.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/v1/delegations", s.HandleDelegations).Methods(http.MethodGet)
	r.HandleFunc("/v1/delegations.csv", s.HandleDelegationsCsv).Methods(http.MethodGet)
	return r
}

func (s *QueryServer) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}).Handler(s.NewRouter())
}

// Start serves until Stop is called. It returns once the listener is open.
func (s *QueryServer) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.config.Port, err)
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Sugar().Infow("Starting query server", zap.Int("port", s.config.Port))
	go func() {
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Sugar().Errorw("Query server stopped", zap.Error(err))
		}
	}()
	return nil
}

func (s *QueryServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *QueryServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"failedContracts": len(s.report.FailedContracts),
	})
}

// runQuery runs the query of a request and writes the error response itself
// when it fails.
func (s *QueryServer) runQuery(w http.ResponseWriter, r *http.Request) (*delegationQuery.QueryResult, bool) {
	input := r.URL.Query().Get("query")

	clamp := s.config.ClampToToday
	if raw := r.URL.Query().Get("clamp"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeJson(w, http.StatusBadRequest, &ErrorResponse{Error: fmt.Sprintf("invalid clamp value '%s'", raw)})
			return nil, false
		}
		clamp = parsed
	}
	policy := delegationQuery.FutureDatePolicy_Abort
	if clamp {
		policy = delegationQuery.FutureDatePolicy_Clamp
	}

	result, err := s.runner.RunInput(r.Context(), input, policy)
	if err != nil {
		var invalidErr *delegationQuery.InvalidQueryInputError
		var futureErr *delegationQuery.FutureDateError
		switch {
		case errors.As(err, &invalidErr):
			writeJson(w, http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		case errors.As(err, &futureErr):
			writeJson(w, http.StatusUnprocessableEntity, &ErrorResponse{Error: fmt.Sprintf("%s, retry with clamp=true to query through today", err.Error())})
		default:
			s.logger.Sugar().Errorw("Failed to run query", zap.String("query", input), zap.Error(err))
			writeJson(w, http.StatusInternalServerError, &ErrorResponse{Error: "failed to run query"})
		}
		return nil, false
	}
	return result, true
}

func (s *QueryServer) HandleDelegations(w http.ResponseWriter, r *http.Request) {
	result, ok := s.runQuery(w, r)
	if !ok {
		return
	}
	writeJson(w, http.StatusOK, &DelegationsResponse{
		RunId:           result.RunId,
		Query:           result.Spec.String(),
		Clamped:         result.Clamped,
		FailedContracts: s.report.FailedContractAddresses(),
		Results:         result.ResultSet,
	})
}

func (s *QueryServer) HandleDelegationsCsv(w http.ResponseWriter, r *http.Request) {
	result, ok := s.runQuery(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.DefaultExportFileName(result.LastDate())))
	w.WriteHeader(http.StatusOK)
	if err := export.WriteResultsCsv(w, result.ResultSet); err != nil {
		s.logger.Sugar().Errorw("Failed to write csv response", zap.Error(err))
	}
}

func writeJson(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
