/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: abstract.go
Description: Abstract command. Finds, for each message, the first symbol of a symbol
file able to explain it.
*/

package commands

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/kleascm/akaylee-inference/pkg/alignment"
	"github.com/kleascm/akaylee-inference/pkg/corpus"
	"github.com/kleascm/akaylee-inference/pkg/schema"
	"github.com/kleascm/akaylee-inference/pkg/types"
	"github.com/kleascm/akaylee-inference/pkg/vocabulary"
	"github.com/spf13/cobra"
)

func newAbstractCommand(env *Env) *cobra.Command {
	var (
		symbolsFile string
		corpusDir   string
		hexMessages []string
	)

	cmd := &cobra.Command{
		Use:   "abstract",
		Short: "Identify the symbol of each message",
		Long: `Try the symbols of a symbol file in order and report, for every message, the
first one whose fields explain it with the values it produced. Messages no symbol
explains are reported as unknown.`,
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

			var messages []*vocabulary.RawMessage
			for _, h := range hexMessages {
				data, err := hex.DecodeString(h)
				if err != nil {
					return fmt.Errorf("invalid message %q: %w", h, err)
				}
				messages = append(messages, vocabulary.NewRawMessage(data))
			}
			if corpusDir != "" {
				c := corpus.NewCorpus(s.config.Corpus.MaxSize)
				if _, err := c.LoadDir(corpusDir, s.logger.GetLogger()); err != nil {
					return err
				}
				messages = append(messages, c.ByPriority()...)
			}
			if len(messages) == 0 {
				return fmt.Errorf("no messages, use --message or --corpus")
			}

			out := cmd.OutOrStdout()
			for i, m := range messages {
				a, err := alignment.Abstract(cmd.Context(), m, symbols, s.options)
				if err != nil {
					return err
				}
				if a.Symbol.IsUnknown() {
					fmt.Fprintf(out, "%d\t%s\t%s\n", i, a.Symbol.Name, hex.EncodeToString(m.Data))
					continue
				}
				fmt.Fprintf(out, "%d\t%s\t%s\n", i, a.Symbol.Name, renderCells(a.Row.Cells))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&symbolsFile, "symbols", "", "Symbol definition file (required)")
	cmd.Flags().StringVar(&corpusDir, "corpus", "", "Directory of messages to abstract")
	cmd.Flags().StringSliceVar(&hexMessages, "message", nil, "Hex encoded message, may be repeated")
	cmd.MarkFlagRequired("symbols")

	return cmd
}

// renderCells shows each value with the first textual type able to display it
func renderCells(cells [][]byte) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = types.InferDisplay([][]byte{c}).Encode(c)
	}
	return strings.Join(parts, " | ")
}
