/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: cluster.go
Description: Cluster command. Splits the messages of a symbol by the value of one of
its fields and writes one symbol per distinct value.
*/

package commands

import (
	"fmt"

	"github.com/kleascm/akaylee-inference/pkg/inference"
	"github.com/kleascm/akaylee-inference/pkg/schema"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newClusterCommand(env *Env) *cobra.Command {
	var symbolsFile, symbolName, keyName, corpusDir, outFile string

	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Split a symbol into clusters by a key field",
		Long: `Align the messages of a symbol, group them by the value of the key field and
rebuild one symbol per group. Each cluster turns the key into a constant and every
other field into the set of values observed in the group.`,
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
			if symbol.Messages, err = s.loadMessages(symbol, corpusDir); err != nil {
				return err
			}

			key := inference.ChildByName(symbol.Field, keyName)
			if key == nil {
				return fmt.Errorf("%w: %s", inference.ErrKeyFieldNotChild, keyName)
			}

			res, err := inference.ClusterByKeyField(cmd.Context(), symbol, key, s.options)
			if err != nil {
				return err
			}
			for _, c := range res.Clusters {
				s.logger.LogCluster(c.Symbol.Name, c.KeyText, len(c.Symbol.Messages))
			}
			if len(res.Excluded) > 0 {
				s.logger.GetLogger().WithFields(logrus.Fields{
					"symbol":   symbol.Name,
					"excluded": len(res.Excluded),
				}).Warn("Messages left out of every cluster")
			}

			if outFile != "" {
				return schema.Save(outFile, res.Symbols())
			}
			data, err := schema.MarshalAll(res.Symbols())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&symbolsFile, "symbols", "", "Symbol definition file (required)")
	cmd.Flags().StringVar(&symbolName, "symbol", "", "Symbol to cluster when the file holds several")
	cmd.Flags().StringVar(&keyName, "key", "", "Name of the key field, an immediate child of the symbol (required)")
	cmd.Flags().StringVar(&corpusDir, "corpus", "", "Directory of messages to cluster instead of the symbol samples")
	cmd.Flags().StringVar(&outFile, "out", "", "Write the cluster symbols to this file instead of stdout")
	cmd.MarkFlagRequired("symbols")
	cmd.MarkFlagRequired("key")

	return cmd
}
