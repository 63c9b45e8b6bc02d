// Package queryPrompt runs the interactive terminal loop: read a date or
// range, print ranked delegations, optionally export, repeat.
package queryPrompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Layr-Labs/delegate-tracker/pkg/delegationQuery"
	"github.com/Layr-Labs/delegate-tracker/pkg/export"
	"github.com/Layr-Labs/delegate-tracker/pkg/ledgerBuilder"
	"go.uber.org/zap"
)

// QueryRunner runs a textual date or date range query.
type QueryRunner interface {
	RunInput(ctx context.Context, input string, policy delegationQuery.FutureDatePolicy) (*delegationQuery.QueryResult, error)
}

type QueryPromptConfig struct {
	// ExportDir is where CSV exports are written
	ExportDir string
}

type QueryPrompt struct {
	runner  QueryRunner
	report  *ledgerBuilder.BuildReport
	config  *QueryPromptConfig
	scanner *bufio.Scanner
	out     io.Writer
	logger  *zap.Logger
}

func NewQueryPrompt(
	runner QueryRunner,
	report *ledgerBuilder.BuildReport,
	cfg *QueryPromptConfig,
	in io.Reader,
	out io.Writer,
	l *zap.Logger,
) *QueryPrompt {
	return &QueryPrompt{
		runner:  runner,
		report:  report,
		config:  cfg,
		scanner: bufio.NewScanner(in),
		out:     out,
		logger:  l,
	}
}

// ask prints a prompt and returns the trimmed answer. ok is false once input
// is exhausted.
func (p *QueryPrompt) ask(prompt string) (string, bool) {
	fmt.Fprint(p.out, prompt)
	if !p.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.scanner.Text()), true
}

func (p *QueryPrompt) confirm(prompt string) bool {
	answer, ok := p.ask(prompt + " (yes/no): ")
	if !ok {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "yes" || answer == "y"
}

// Run loops until the user declines another query or input ends.
func (p *QueryPrompt) Run(ctx context.Context) error {
	if p.report != nil && p.report.HasFailures() {
		fmt.Fprintf(p.out, "Warning: %d contract(s) could not be retrieved and count as 0: %s\n",
			len(p.report.FailedContracts), strings.Join(p.report.FailedContractAddresses(), ", "))
	}

	for {
		input, ok := p.ask("\nEnter the date to query (YYYY-MM-DD), or a range (YYYY-MM-DD to YYYY-MM-DD): ")
		if !ok {
			return nil
		}

		result, err := p.runner.RunInput(ctx, input, delegationQuery.FutureDatePolicy_Abort)
		if err != nil {
			var invalidErr *delegationQuery.InvalidQueryInputError
			var futureErr *delegationQuery.FutureDateError
			switch {
			case errors.As(err, &invalidErr):
				fmt.Fprintf(p.out, "Invalid date format: %s. Please try again.\n", invalidErr.Reason)
				continue
			case errors.As(err, &futureErr):
				fmt.Fprintln(p.out, "The application cannot see into the future.")
				question := "Would you like to query today's date instead?"
				if strings.Contains(input, " to ") {
					question = "Would you like to limit the range to today's date?"
				}
				if !p.confirm(question) {
					fmt.Fprintln(p.out, "Exiting.")
					return nil
				}
				result, err = p.runner.RunInput(ctx, input, delegationQuery.FutureDatePolicy_Clamp)
				if err != nil {
					return err
				}
			default:
				return err
			}
		}

		PrintResult(p.out, result)

		if p.confirm("\nDo you want to export the results to a CSV file?") {
			if err := p.export(result); err != nil {
				fmt.Fprintf(p.out, "Failed to export results: %v\n", err)
			}
		}

		if !p.confirm("\nDo you want to query another date?") {
			return nil
		}
	}
}

func (p *QueryPrompt) export(result *delegationQuery.QueryResult) error {
	if result.ResultSet.Len() == 0 {
		fmt.Fprintln(p.out, "Nothing to export.")
		return nil
	}
	path := filepath.Join(p.config.ExportDir, export.DefaultExportFileName(result.LastDate()))
	if err := export.WriteResultsCsvFile(path, result.ResultSet); err != nil {
		return err
	}
	fmt.Fprintf(p.out, "Data exported to %s\n", path)
	p.logger.Sugar().Infow("Exported query results", zap.String("path", path), zap.String("runId", result.RunId))
	return nil
}

// PrintResult writes every date of a result with each delegate's total, rank
// and committee amounts.
func PrintResult(w io.Writer, result *delegationQuery.QueryResult) {
	if result.ResultSet.Len() == 0 {
		fmt.Fprintln(w, "\nNo dates to show.")
		return
	}
	for pair := result.ResultSet.Oldest(); pair != nil; pair = pair.Next() {
		fmt.Fprintf(w, "\nDelegations on %s:\n", pair.Key)
		for _, d := range pair.Value {
			fmt.Fprintf(w, "\nDelegate %s:\n", d.DelegateName)
			fmt.Fprintf(w, "Total Delegation: %s MKR\n", d.Total.String())
			fmt.Fprintf(w, "Ranking: %d\n", d.Rank)
			for c := d.Committees.Oldest(); c != nil; c = c.Next() {
				fmt.Fprintf(w, "   - %s: %s MKR\n", c.Key, c.Value.String())
			}
		}
	}
}
