package cmd

import (
	"os"
	"strings"

	"github.com/Layr-Labs/delegate-tracker/internal/config"
	"github.com/Layr-Labs/delegate-tracker/pkg/clients/etherscan"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "delegate-tracker",
	Short: "Track delegated MKR per aligned delegate over time",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadDotEnv)
	initConfig(rootCmd)

	rootCmd.PersistentFlags().Bool(config.Debug, false, `"true" or "false"`)

	rootCmd.PersistentFlags().String(config.EtherscanApiKey, "", `Etherscan API key, also read from ETHERSCAN_API_KEY`)
	rootCmd.PersistentFlags().String(config.EtherscanBaseUrl, etherscan.DefaultBaseUrl, `Etherscan compatible API url`)
	rootCmd.PersistentFlags().Int(config.EtherscanPageSize, etherscan.DefaultPageSize, `Number of logs requested per page`)
	rootCmd.PersistentFlags().Int(config.EtherscanTimeoutSeconds, 30, `Timeout of a single Etherscan request`)

	rootCmd.PersistentFlags().String(config.LedgerSourceFlag, string(config.LedgerSource_Etherscan), `Where events are read from ("etherscan" or "database")`)
	rootCmd.PersistentFlags().Uint64(config.LedgerFromBlock, config.DefaultFromBlock, `First block to read events from`)
	rootCmd.PersistentFlags().String(config.LedgerToBlock, "latest", `Last block to read events from`)
	rootCmd.PersistentFlags().Int(config.LedgerWorkers, 1, `Number of contracts fetched in parallel`)
	rootCmd.PersistentFlags().Bool(config.LedgerShowProgress, false, `Show a progress bar while fetching contracts`)

	rootCmd.PersistentFlags().String(config.RosterPath, "delegate_data/Aligned Delegates.csv", `Path to the delegate roster (.csv or .yaml)`)
	rootCmd.PersistentFlags().String(config.RosterWindowPolicyFlag, string(config.RosterWindowPolicy_Ignore), `Roster start/end dates ("ignore" or "enforce")`)

	rootCmd.PersistentFlags().Int(config.QueryWorkers, 1, `Number of dates aggregated in parallel`)
	rootCmd.PersistentFlags().Bool(config.QueryClampToToday, false, `Query through today instead of failing on future dates`)

	rootCmd.PersistentFlags().String(config.DatabaseHost, "localhost", `PostgreSQL host`)
	rootCmd.PersistentFlags().Int(config.DatabasePort, 5432, `PostgreSQL port`)
	rootCmd.PersistentFlags().String(config.DatabaseUser, "delegate_tracker", `PostgreSQL username`)
	rootCmd.PersistentFlags().String(config.DatabasePassword, "", `PostgreSQL password`)
	rootCmd.PersistentFlags().String(config.DatabaseDbName, "delegate_tracker", `PostgreSQL database name`)
	rootCmd.PersistentFlags().String(config.DatabaseSchemaName, "", `PostgreSQL schema name (default "public")`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLMode, "disable", `PostgreSQL ssl mode`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLCert, "", `PostgreSQL client certificate`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLKey, "", `PostgreSQL client key`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLRootCert, "", `PostgreSQL root certificate`)

	rootCmd.PersistentFlags().Int(config.HttpPort, 7101, `Port of the http query API`)

	rootCmd.PersistentFlags().Bool(config.DataDogStatsdEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().String(config.DataDogStatsdUrl, "", `e.g. "localhost:8125"`)
	rootCmd.PersistentFlags().Bool(config.DataDogTracingEnabled, false, `e.g. "true" or "false"`)

	rootCmd.PersistentFlags().Bool(config.PrometheusEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().Int(config.PrometheusPort, 2112, `The port to run the prometheus server on`)

	// setup sub commands
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runVersionCmd)

	// bind any subcommand flags
	queryCmd.PersistentFlags().String(queryInputFlag, "", `Date or range to query, e.g. "2023-01-01 to 2023-01-31". Prompts interactively when empty`)
	queryCmd.PersistentFlags().Bool(queryExportFlag, false, `Export the results of --query to a CSV file`)
	queryCmd.PersistentFlags().String(queryExportDirFlag, ".", `Directory CSV exports are written to`)

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		viper.BindPFlag(key, f) //nolint:errcheck
		viper.BindEnv(key)      //nolint:errcheck
	})

	// the key name used by the .env files of earlier releases
	viper.BindEnv(config.KebabToSnakeCase(config.EtherscanApiKey), "DELEGATE_TRACKER_ETHERSCAN_API_KEY", "ETHERSCAN_API_KEY") //nolint:errcheck
}

func initConfig(cmd *cobra.Command) {
	viper.SetEnvPrefix(config.ENV_PREFIX)

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.AutomaticEnv()
}

// loadDotEnv loads a .env file from the working directory when there is one.
// Variables already set in the environment take precedence.
func loadDotEnv() {
	_ = godotenv.Load()
}
