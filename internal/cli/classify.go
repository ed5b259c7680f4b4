package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/navigator/internal/intent"
)

func newClassifyCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "classify <query>",
		Short: "Print the detected intent and slots for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := intent.Classify(strings.Join(args, " "), from)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(c)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "preferred departure city")
	return cmd
}
