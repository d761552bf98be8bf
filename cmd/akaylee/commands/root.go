/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: root.go
Description: Root command of the akaylee CLI. Declares the persistent flags, binds
them to configuration keys and registers every subcommand.
*/

package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version of the command line tool
const Version = "1.0.0"

// NewRootCommand builds the akaylee command tree around a fresh viper instance
func NewRootCommand() *cobra.Command {
	env := &Env{viper: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "akaylee",
		Short: "Akaylee - message format inference",
		Long: `Akaylee aligns captured messages against symbol definitions, splits symbols
into clusters by the value of a key field, abstracts unknown messages and
generates new messages from inferred symbols.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&env.configFile, "config", "", "Configuration file path (yaml, toml, json)")
	pf.String("log-level", "info", "Logging level (debug, info, warn, error)")
	pf.String("log-format", "custom", "Log format (text, json, custom)")
	pf.String("log-dir", "", "Directory for timestamped log files")
	pf.String("strategy", "sequential", "Alignment strategy (sequential, parallel)")
	pf.Int("workers", 0, "Parallel alignment workers (0 = GOMAXPROCS)")
	pf.Int("max-branches", 100000, "Parse paths one message may create (0 = unlimited)")
	pf.Bool("metrics", false, "Expose Prometheus metrics while running")
	pf.String("metrics-addr", ":9090", "Listen address of the metrics endpoint")

	v := env.viper
	v.BindPFlag("logging.level", pf.Lookup("log-level"))
	v.BindPFlag("logging.format", pf.Lookup("log-format"))
	v.BindPFlag("logging.output_dir", pf.Lookup("log-dir"))
	v.BindPFlag("alignment.strategy", pf.Lookup("strategy"))
	v.BindPFlag("alignment.workers", pf.Lookup("workers"))
	v.BindPFlag("alignment.max_branches", pf.Lookup("max-branches"))
	v.BindPFlag("metrics.enabled", pf.Lookup("metrics"))
	v.BindPFlag("metrics.addr", pf.Lookup("metrics-addr"))

	rootCmd.AddCommand(
		newAlignCommand(env),
		newClusterCommand(env),
		newAbstractCommand(env),
		newSpecializeCommand(env),
		newCheckCommand(env),
	)
	return rootCmd
}
