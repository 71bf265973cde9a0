package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/bikeindex-cli/internal/adapters/driven/bikeindex"
)

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Look up manufacturers, colours and other terms",
	Long: `Looks up terms with the public autocomplete endpoint.
Use it to find the exact manufacturer name before registering a bike.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if apiClient == nil {
		return errNotConfigured
	}

	resp, err := bikeindex.AuthenticatedGet(cmd.Context(), apiClient, bikeindex.Autocomplete(args[0]))
	if err != nil {
		return userError("search failed", err)
	}

	if searchJSON {
		return outputJSON(cmd, resp.Matches)
	}
	if len(resp.Matches) == 0 {
		cmd.Println("No results found.")
		return nil
	}
	for i, m := range resp.Matches {
		cmd.Printf("  [%d] %s %s\n", i+1, m.Text, mutedStyle.Render(m.Category))
	}
	return nil
}
