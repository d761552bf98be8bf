/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: check.go
Description: Check command. Validates a symbol file: every domain tree must be well
formed and every sample message must align against its symbol.
*/

package commands

import (
	"errors"
	"fmt"

	"github.com/kleascm/akaylee-inference/pkg/alignment"
	"github.com/kleascm/akaylee-inference/pkg/schema"
	"github.com/spf13/cobra"
)

// ErrCheckFailed is returned when sample messages do not align
var ErrCheckFailed = errors.New("check failed")

func newCheckCommand(env *Env) *cobra.Command {
	var symbolsFile string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a symbol file",
		Long: `Load a symbol file, validate the domain trees of every symbol and align the
sample messages each symbol carries. Fails when a domain is malformed or a sample
does not align. Useful in CI to keep symbol definitions and captures in sync.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := env.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			symbols, err := schema.Load(symbolsFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, symbol := range symbols {
				res, err := alignment.AlignSymbol(cmd.Context(), symbol, s.options)
				if err != nil {
					return fmt.Errorf("symbol %s: %w", symbol.Name, err)
				}
				s.logger.LogStats(res.Stats.GetStats())

				status := "ok"
				if len(res.Failures) > 0 {
					status = "FAIL"
				}
				fmt.Fprintf(out, "%-4s %s: %d field(s), %d/%d message(s) aligned\n",
					status, symbol.Name, len(symbol.LeafFields(-1)), len(res.Matrix.Rows), len(symbol.Messages))
				for _, f := range res.Failures {
					fmt.Fprintf(out, "     message %d: %v\n", f.Index, f.Err)
				}
				failed += len(res.Failures)
			}

			if failed > 0 {
				return fmt.Errorf("%w: %d message(s) did not align", ErrCheckFailed, failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&symbolsFile, "symbols", "", "Symbol definition file (required)")
	cmd.MarkFlagRequired("symbols")

	return cmd
}
