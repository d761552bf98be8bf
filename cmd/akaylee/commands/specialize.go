/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: specialize.go
Description: Specialize command. Generates concrete messages from a symbol, or mutates
a given message while keeping it inside the symbol.
*/

package commands

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/kleascm/akaylee-inference/pkg/grammar"
	"github.com/spf13/cobra"
)

func newSpecializeCommand(env *Env) *cobra.Command {
	var (
		symbolsFile string
		symbolName  string
		mutate      string
		count       int
		seed        int64
	)

	cmd := &cobra.Command{
		Use:   "specialize",
		Short: "Generate messages from a symbol",
		Long: `Produce concrete messages from the domains of a symbol, honouring constants,
value sets, repetitions and references. With --mutate, one field of the given
message is regenerated instead. Messages are printed hex encoded, one per line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("count must be positive")
			}

			s, err := env.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			symbol, _, err := loadSymbol(symbolsFile, symbolName)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}

			g := grammar.NewSymbolGrammar(symbol, seed, s.options)
			var input []byte
			if mutate != "" {
				if input, err = hex.DecodeString(mutate); err != nil {
					return fmt.Errorf("invalid message %q: %w", mutate, err)
				}
			}

			out := cmd.OutOrStdout()
			for i := 0; i < count; i++ {
				var data []byte
				if input != nil {
					data, err = g.Mutate(input)
				} else {
					data, err = g.Generate()
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(out, hex.EncodeToString(data))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&symbolsFile, "symbols", "", "Symbol definition file (required)")
	cmd.Flags().StringVar(&symbolName, "symbol", "", "Symbol to use when the file holds several")
	cmd.Flags().StringVar(&mutate, "mutate", "", "Hex encoded message to mutate instead of generating")
	cmd.Flags().IntVar(&count, "count", 1, "Number of messages to produce")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (default: current time)")
	cmd.MarkFlagRequired("symbols")

	return cmd
}
