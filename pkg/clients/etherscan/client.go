package etherscan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Layr-Labs/delegate-tracker/pkg/parser"
	"go.uber.org/zap"
)

const (
	DefaultBaseUrl  = "https://api.etherscan.io/api"
	DefaultPageSize = 1000

	// page * offset may not exceed this on the getLogs endpoint
	maxResultWindow = 10000

	noRecordsFoundMessage = "No records found"
)

type EtherscanClientConfig struct {
	ApiKey   string
	BaseUrl  string
	PageSize int
}

func DefaultEtherscanClientConfig() *EtherscanClientConfig {
	return &EtherscanClientConfig{
		BaseUrl:  DefaultBaseUrl,
		PageSize: DefaultPageSize,
	}
}

type Client struct {
	httpClient *http.Client
	config     *EtherscanClientConfig
	logger     *zap.Logger
}

// GetLogsRequest selects the logs of one event type emitted by one contract.
type GetLogsRequest struct {
	Address   string
	Topic0    string
	FromBlock uint64
	// ToBlock is a block number or "latest"
	ToBlock string
}

type getLogsResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func DefaultHttpClient(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
	}
}

func NewEtherscanClient(cfg *EtherscanClientConfig, httpClient *http.Client, l *zap.Logger) *Client {
	if cfg.BaseUrl == "" {
		cfg.BaseUrl = DefaultBaseUrl
	}
	if cfg.PageSize <= 0 || cfg.PageSize > maxResultWindow {
		cfg.PageSize = DefaultPageSize
	}
	if httpClient == nil {
		httpClient = DefaultHttpClient(0)
	}
	return &Client{
		httpClient: httpClient,
		config:     cfg,
		logger:     l,
	}
}

// GetLogs returns every log matching the request, following pagination until a
// short page is returned. When the result window is exhausted the scan restarts
// from the last seen block; logs returned twice are dropped.
func (c *Client) GetLogs(ctx context.Context, req *GetLogsRequest) ([]*parser.RawLog, error) {
	allLogs := make([]*parser.RawLog, 0)
	seen := make(map[string]struct{})

	fromBlock := req.FromBlock
	lastBlock := fromBlock
	page := 1
	for {
		if page*c.config.PageSize > maxResultWindow {
			if lastBlock <= fromBlock {
				return nil, fmt.Errorf("more than %d logs in block %d for '%s'", maxResultWindow, fromBlock, req.Address)
			}
			fromBlock = lastBlock
			page = 1
		}

		logs, err := c.getLogsPage(ctx, req, fromBlock, page)
		if err != nil {
			return nil, err
		}

		for _, lg := range logs {
			key := fmt.Sprintf("%s_%s", strings.ToLower(lg.TransactionHash), lg.LogIndex)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			allLogs = append(allLogs, lg)

			if bn, err := parseHexQuantity(lg.BlockNumber); err == nil && bn > lastBlock {
				lastBlock = bn
			}
		}

		if len(logs) < c.config.PageSize {
			break
		}
		page++
	}

	c.logger.Sugar().Debugw("Fetched logs",
		zap.String("address", req.Address),
		zap.String("topic0", req.Topic0),
		zap.Int("count", len(allLogs)),
	)
	return allLogs, nil
}

func (c *Client) getLogsPage(ctx context.Context, req *GetLogsRequest, fromBlock uint64, page int) ([]*parser.RawLog, error) {
	toBlock := req.ToBlock
	if toBlock == "" {
		toBlock = "latest"
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseUrl, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	q := httpReq.URL.Query()
	q.Add("module", "logs")
	q.Add("action", "getLogs")
	q.Add("address", req.Address)
	q.Add("fromBlock", strconv.FormatUint(fromBlock, 10))
	q.Add("toBlock", toBlock)
	q.Add("topic0", req.Topic0)
	q.Add("page", strconv.Itoa(page))
	q.Add("offset", strconv.Itoa(c.config.PageSize))
	q.Add("apikey", c.config.ApiKey)
	httpReq.URL.RawQuery = q.Encode()

	httpReq.Header.Set("accept", "application/json")

	c.logger.Sugar().Debugw("Making Etherscan request",
		zap.String("address", req.Address),
		zap.String("topic0", req.Topic0),
		zap.Uint64("fromBlock", fromBlock),
		zap.Int("page", page),
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var r getLogsResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if r.Status != "1" {
		if strings.EqualFold(r.Message, noRecordsFoundMessage) {
			return []*parser.RawLog{}, nil
		}
		var reason string
		if err := json.Unmarshal(r.Result, &reason); err != nil {
			reason = string(r.Result)
		}
		return nil, fmt.Errorf("API request failed with status '%s' (%s): %s", r.Status, r.Message, reason)
	}

	logs := make([]*parser.RawLog, 0)
	if err := json.Unmarshal(r.Result, &logs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal logs: %w", err)
	}
	return logs, nil
}

func parseHexQuantity(value string) (uint64, error) {
	value = strings.TrimPrefix(strings.TrimPrefix(value, "0x"), "0X")
	if value == "" {
		return 0, fmt.Errorf("empty quantity")
	}
	return strconv.ParseUint(value, 16, 64)
}
