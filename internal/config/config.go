package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const ENV_PREFIX = "DELEGATE_TRACKER"

type LedgerSource string

const (
	LedgerSource_Etherscan LedgerSource = "etherscan"
	LedgerSource_Database  LedgerSource = "database"
)

type RosterWindowPolicy string

const (
	// RosterWindowPolicy_Ignore aggregates every roster row regardless of its start/end dates.
	RosterWindowPolicy_Ignore RosterWindowPolicy = "ignore"
	// RosterWindowPolicy_Enforce skips rows whose validity window does not contain the query date.
	RosterWindowPolicy_Enforce RosterWindowPolicy = "enforce"
)

// First block of 2023-01-01 on Ethereum mainnet.
const DefaultFromBlock uint64 = 16308190

type EtherscanConfig struct {
	ApiKey         string
	BaseUrl        string
	PageSize       int
	TimeoutSeconds int
}

type LedgerConfig struct {
	Source       LedgerSource
	FromBlock    uint64
	ToBlock      string
	Workers      int
	ShowProgress bool
}

type RosterConfig struct {
	Path         string
	WindowPolicy RosterWindowPolicy
}

type QueryConfig struct {
	Workers      int
	ClampToToday bool
}

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DbName      string
	SchemaName  string
	SSLMode     string
	SSLCert     string
	SSLKey      string
	SSLRootCert string
}

type HttpServerConfig struct {
	Port int
}

type PrometheusConfig struct {
	Enabled bool
	Port    int
}

type DataDogConfig struct {
	StatsdConfig struct {
		Enabled bool
		Url     string
	}
	TracingConfig struct {
		Enabled bool
	}
}

type Config struct {
	Debug            bool
	EtherscanConfig  EtherscanConfig
	LedgerConfig     LedgerConfig
	RosterConfig     RosterConfig
	QueryConfig      QueryConfig
	DatabaseConfig   DatabaseConfig
	HttpServerConfig HttpServerConfig
	PrometheusConfig PrometheusConfig
	DataDogConfig    DataDogConfig
}

var (
	Debug = "debug"

	EtherscanApiKey         = "etherscan.api-key"
	EtherscanBaseUrl        = "etherscan.base-url"
	EtherscanPageSize       = "etherscan.page-size"
	EtherscanTimeoutSeconds = "etherscan.timeout-seconds"

	LedgerSourceFlag   = "ledger.source"
	LedgerFromBlock    = "ledger.from-block"
	LedgerToBlock      = "ledger.to-block"
	LedgerWorkers      = "ledger.workers"
	LedgerShowProgress = "ledger.show-progress"

	RosterPath             = "roster.path"
	RosterWindowPolicyFlag = "roster.window-policy"

	QueryWorkers      = "query.workers"
	QueryClampToToday = "query.clamp-to-today"

	DatabaseHost        = "database.host"
	DatabasePort        = "database.port"
	DatabaseUser        = "database.user"
	DatabasePassword    = "database.password"
	DatabaseDbName      = "database.db_name"
	DatabaseSchemaName  = "database.schema_name"
	DatabaseSSLMode     = "database.ssl_mode"
	DatabaseSSLCert     = "database.ssl_cert"
	DatabaseSSLKey      = "database.ssl_key"
	DatabaseSSLRootCert = "database.ssl_root_cert"

	HttpPort = "http.port"

	PrometheusEnabled = "prometheus.enabled"
	PrometheusPort    = "prometheus.port"

	DataDogStatsdEnabled  = "datadog.statsd.enabled"
	DataDogStatsdUrl      = "datadog.statsd.url"
	DataDogTracingEnabled = "datadog.tracing.enabled"
)

func NewConfig() *Config {
	c := &Config{
		Debug: viper.GetBool(normalizeFlagName(Debug)),

		EtherscanConfig: EtherscanConfig{
			ApiKey:         viper.GetString(normalizeFlagName(EtherscanApiKey)),
			BaseUrl:        viper.GetString(normalizeFlagName(EtherscanBaseUrl)),
			PageSize:       viper.GetInt(normalizeFlagName(EtherscanPageSize)),
			TimeoutSeconds: viper.GetInt(normalizeFlagName(EtherscanTimeoutSeconds)),
		},

		LedgerConfig: LedgerConfig{
			Source:       LedgerSource(viper.GetString(normalizeFlagName(LedgerSourceFlag))),
			FromBlock:    viper.GetUint64(normalizeFlagName(LedgerFromBlock)),
			ToBlock:      viper.GetString(normalizeFlagName(LedgerToBlock)),
			Workers:      viper.GetInt(normalizeFlagName(LedgerWorkers)),
			ShowProgress: viper.GetBool(normalizeFlagName(LedgerShowProgress)),
		},

		RosterConfig: RosterConfig{
			Path:         viper.GetString(normalizeFlagName(RosterPath)),
			WindowPolicy: RosterWindowPolicy(viper.GetString(normalizeFlagName(RosterWindowPolicyFlag))),
		},

		QueryConfig: QueryConfig{
			Workers:      viper.GetInt(normalizeFlagName(QueryWorkers)),
			ClampToToday: viper.GetBool(normalizeFlagName(QueryClampToToday)),
		},

		DatabaseConfig: DatabaseConfig{
			Host:        viper.GetString(normalizeFlagName(DatabaseHost)),
			Port:        viper.GetInt(normalizeFlagName(DatabasePort)),
			User:        viper.GetString(normalizeFlagName(DatabaseUser)),
			Password:    viper.GetString(normalizeFlagName(DatabasePassword)),
			DbName:      viper.GetString(normalizeFlagName(DatabaseDbName)),
			SchemaName:  viper.GetString(normalizeFlagName(DatabaseSchemaName)),
			SSLMode:     viper.GetString(normalizeFlagName(DatabaseSSLMode)),
			SSLCert:     viper.GetString(normalizeFlagName(DatabaseSSLCert)),
			SSLKey:      viper.GetString(normalizeFlagName(DatabaseSSLKey)),
			SSLRootCert: viper.GetString(normalizeFlagName(DatabaseSSLRootCert)),
		},

		HttpServerConfig: HttpServerConfig{
			Port: viper.GetInt(normalizeFlagName(HttpPort)),
		},

		PrometheusConfig: PrometheusConfig{
			Enabled: viper.GetBool(normalizeFlagName(PrometheusEnabled)),
			Port:    viper.GetInt(normalizeFlagName(PrometheusPort)),
		},
	}

	c.DataDogConfig.StatsdConfig.Enabled = viper.GetBool(normalizeFlagName(DataDogStatsdEnabled))
	c.DataDogConfig.StatsdConfig.Url = viper.GetString(normalizeFlagName(DataDogStatsdUrl))
	c.DataDogConfig.TracingConfig.Enabled = viper.GetBool(normalizeFlagName(DataDogTracingEnabled))

	if c.LedgerConfig.Source == "" {
		c.LedgerConfig.Source = LedgerSource_Etherscan
	}
	if c.LedgerConfig.FromBlock == 0 {
		c.LedgerConfig.FromBlock = DefaultFromBlock
	}
	if c.LedgerConfig.ToBlock == "" {
		c.LedgerConfig.ToBlock = "latest"
	}
	if c.RosterConfig.WindowPolicy == "" {
		c.RosterConfig.WindowPolicy = RosterWindowPolicy_Ignore
	}
	return c
}

// ValidateLedgerConfig checks the settings needed to build a ledger from the configured source.
func (c *Config) ValidateLedgerConfig() error {
	switch c.LedgerConfig.Source {
	case LedgerSource_Etherscan:
		if c.EtherscanConfig.ApiKey == "" || c.EtherscanConfig.ApiKey == "YOUR_ETHERSCAN_API_KEY" {
			return fmt.Errorf("%s is required, an API key can be obtained from https://etherscan.io/apis", EtherscanApiKey)
		}
	case LedgerSource_Database:
		if c.DatabaseConfig.Host == "" || c.DatabaseConfig.DbName == "" {
			return fmt.Errorf("%s and %s are required when %s is '%s'", DatabaseHost, DatabaseDbName, LedgerSourceFlag, LedgerSource_Database)
		}
	default:
		return fmt.Errorf("unsupported %s '%s'", LedgerSourceFlag, c.LedgerConfig.Source)
	}

	switch c.RosterConfig.WindowPolicy {
	case RosterWindowPolicy_Ignore, RosterWindowPolicy_Enforce:
	default:
		return fmt.Errorf("unsupported %s '%s'", RosterWindowPolicyFlag, c.RosterConfig.WindowPolicy)
	}

	if c.RosterConfig.Path == "" {
		return fmt.Errorf("%s is required", RosterPath)
	}
	return nil
}

func normalizeFlagName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

func KebabToSnakeCase(str string) string {
	return strings.ReplaceAll(str, "-", "_")
}
