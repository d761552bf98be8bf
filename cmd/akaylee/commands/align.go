/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: align.go
Description: Align command. Parses messages against a symbol and prints the value
matrix, one row per aligned message and one column per field.
*/

package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/kleascm/akaylee-inference/pkg/alignment"
	"github.com/spf13/cobra"
)

type alignReport struct {
	Symbol   string                 `json:"symbol"`
	Fields   []string               `json:"fields"`
	Rows     [][]string             `json:"rows"`
	Failures []failureReport        `json:"failures,omitempty"`
	Stats    map[string]interface{} `json:"stats"`
}

type failureReport struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func newAlignCommand(env *Env) *cobra.Command {
	var symbolsFile, symbolName, corpusDir, format string

	cmd := &cobra.Command{
		Use:   "align",
		Short: "Align messages against a symbol",
		Long: `Parse every message against the fields of a symbol and print the resulting
value matrix. Messages come from the symbol file itself or from a corpus directory.
Messages no decomposition explains are reported and left out of the matrix.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := env.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			symbol, _, err := loadSymbol(symbolsFile, symbolName)
			if err != nil {
				return err
			}
			messages, err := s.loadMessages(symbol, corpusDir)
			if err != nil {
				return err
			}

			res, err := alignment.Align(cmd.Context(), messages, symbol.Field, s.options)
			if err != nil {
				return err
			}
			stats := res.Stats.GetStats()
			s.logger.LogAlignment(symbol.Name, len(messages), len(res.Matrix.Rows), len(res.Failures), res.Stats.Duration)

			report := alignReport{Symbol: symbol.Name, Rows: res.Matrix.Encode(), Stats: stats}
			for _, f := range res.Matrix.Fields {
				report.Fields = append(report.Fields, f.Name)
			}
			for _, f := range res.Failures {
				report.Failures = append(report.Failures, failureReport{
					Index:   f.Index,
					Message: f.Message.ID.String(),
					Error:   f.Reason,
				})
			}
			return writeAlignReport(cmd.OutOrStdout(), format, report)
		},
	}

	cmd.Flags().StringVar(&symbolsFile, "symbols", "", "Symbol definition file (required)")
	cmd.Flags().StringVar(&symbolName, "symbol", "", "Symbol to use when the file holds several")
	cmd.Flags().StringVar(&corpusDir, "corpus", "", "Directory of messages to align instead of the symbol samples")
	cmd.Flags().StringVar(&format, "format", "table", "Output format (table, json)")
	cmd.Flags().Int("depth", 0, "Column depth below the symbol (0 = leaf fields)")
	cmd.MarkFlagRequired("symbols")
	env.viper.BindPFlag("alignment.depth", cmd.Flags().Lookup("depth"))

	return cmd
}

func writeAlignReport(w io.Writer, format string, report alignReport) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(report.Fields, "\t"))
		for _, row := range report.Rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if len(report.Failures) > 0 {
			fmt.Fprintf(w, "\n%d message(s) not aligned:\n", len(report.Failures))
			for _, f := range report.Failures {
				fmt.Fprintf(w, "  #%d %s: %s\n", f.Index, f.Message, f.Error)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
