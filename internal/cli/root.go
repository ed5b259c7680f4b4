// Package cli implements the navigator command line.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xiaot623/gogo/navigator/internal/config"
)

var cfgFile string

// NewRootCmd builds the navigator command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "navigator",
		Short: "Navigator - conversational travel planning assistant",
		Long: `Navigator answers travel questions: destination ideas, day-by-day
itineraries and flight searches, backed by an LLM that calls travel tools
and by deterministic fallbacks when no model is available.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newChatCmd())
	root.AddCommand(newClassifyCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func loadConfig() (*viper.Viper, *config.Config, error) {
	v := config.New()
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, nil, err
	}
	return v, cfg, nil
}
