package cmd

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"lendledger/config"
	"lendledger/domain/entities"
	"lendledger/domain/utils"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func reportCommand() *cobra.Command {
	var today string
	c := &cobra.Command{
		Use:   "report <address> [TOKEN...]",
		Short: "Reconciles one wallet and prints a per-token summary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			day := entities.DayFromTime(time.Now())
			if today != "" {
				parsed, err := entities.ParseDay(today)
				if err != nil {
					return err
				}
				day = parsed
			}
			return runReport(c, args[0], args[1:], day)
		},
	}
	c.Flags().StringVar(&today, "today", "", "last reconciled day as YYYYMMDD (default: current UTC day)")
	return c
}

func runReport(c *cobra.Command, address string, symbols []string, today entities.Day) error {
	cfg := config.Get()
	if err := configureLogging(cfg); err != nil {
		return err
	}

	a, err := newApp(c.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.close()

	report, err := a.positions.GetPosition(c.Context(), address, symbols, today)
	if err != nil {
		return err
	}
	WriteReport(c.OutOrStdout(), report)
	return nil
}

// WriteReport renders a position report as a table, followed by any failed tokens
func WriteReport(out io.Writer, report *entities.PositionReport) {
	fmt.Fprintf(out, "Position %s as of %s\n", report.Address, report.Today.ISO())

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Token", "Debt", "Debt interest", "Supply", "Supply interest", "Net interest", "Issues"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	var failed []entities.TokenReport
	for _, t := range report.Tokens {
		if t.Failed() {
			failed = append(failed, t)
			continue
		}
		if t.Summary == nil {
			continue
		}
		s := t.Summary
		table.Append([]string{
			s.Symbol,
			utils.FormatAmount(s.Debt.CurrentBalance),
			utils.FormatAmount(s.Debt.TotalInterest),
			utils.FormatAmount(s.Supply.CurrentBalance),
			utils.FormatAmount(s.Supply.TotalInterest),
			utils.FormatAmount(s.NetInterest),
			strconv.Itoa(len(t.Issues)),
		})
	}
	table.Render()

	for _, t := range failed {
		fmt.Fprintf(out, "%s failed: %s\n", t.Symbol, t.Error)
	}
	for _, issue := range report.Issues {
		fmt.Fprintf(out, "skipped: %s\n", issue.Message)
	}
}
