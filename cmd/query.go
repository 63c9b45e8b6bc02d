package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Layr-Labs/delegate-tracker/internal/tracer"
	"github.com/Layr-Labs/delegate-tracker/pkg/export"
	"github.com/Layr-Labs/delegate-tracker/pkg/queryPrompt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	queryInputFlag     = "query"
	queryExportFlag    = "export"
	queryExportDirFlag = "export-dir"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query delegated MKR per delegate for a date or date range",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, l, sink := bootstrap()
		defer sink.Flush()

		tracer.StartTracer(cfg.DataDogConfig.TracingConfig.Enabled)
		defer tracer.StopTracer()

		if err := cfg.ValidateLedgerConfig(); err != nil {
			fmt.Fprintln(os.Stderr, "Error: No Etherscan API key found or the configuration is incomplete.")
			fmt.Fprintln(os.Stderr, "Set ETHERSCAN_API_KEY in a .env file or the environment. A key can be obtained from https://etherscan.io/apis")
			l.Sugar().Fatalw("Invalid configuration", zap.Error(err))
		}

		input, _ := cmd.Flags().GetString(queryInputFlag)
		exportResults, _ := cmd.Flags().GetBool(queryExportFlag)
		exportDir, _ := cmd.Flags().GetString(queryExportDirFlag)

		ctx := context.Background()

		driver, report, err := prepareQueryDriver(ctx, cfg, "cli", sink, l)
		if err != nil {
			l.Sugar().Fatalw("Failed to build delegation ledger", zap.Error(err))
		}

		if input == "" {
			prompt := queryPrompt.NewQueryPrompt(driver, report, &queryPrompt.QueryPromptConfig{ExportDir: exportDir}, os.Stdin, os.Stdout, l)
			if err := prompt.Run(ctx); err != nil {
				l.Sugar().Fatalw("Query failed", zap.Error(err))
			}
			return
		}

		result, err := driver.RunInput(ctx, input, futureDatePolicy(cfg.QueryConfig.ClampToToday))
		if err != nil {
			l.Sugar().Fatalw("Query failed", zap.String("query", input), zap.Error(err))
		}
		if report.HasFailures() {
			l.Sugar().Warnw("Some contracts could not be retrieved and count as 0",
				zap.Strings("contracts", report.FailedContractAddresses()),
			)
		}
		queryPrompt.PrintResult(os.Stdout, result)

		if exportResults && result.ResultSet.Len() > 0 {
			path := filepath.Join(exportDir, export.DefaultExportFileName(result.LastDate()))
			if err := export.WriteResultsCsvFile(path, result.ResultSet); err != nil {
				l.Sugar().Fatalw("Failed to export results", zap.String("path", path), zap.Error(err))
			}
			fmt.Fprintf(os.Stdout, "Data exported to %s\n", path)
		}
	},
}
