package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bikeindex-cli/internal/adapters/driven/bikeindex"
)

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the signed-in account",
	Args:  cobra.NoArgs,
	RunE:  runMe,
}

func init() {
	rootCmd.AddCommand(meCmd)
}

func runMe(cmd *cobra.Command, _ []string) error {
	if err := ensureSession(cmd.Context()); err != nil {
		return err
	}

	me, err := bikeindex.AuthenticatedGet(cmd.Context(), apiClient, bikeindex.CurrentUser())
	if err != nil {
		return userError("failed to fetch account", err)
	}

	cmd.Println(titleStyle.Render(me.User.Name))
	if me.User.Username != "" {
		cmd.Println(field("Username", me.User.Username))
	}
	if me.User.Email != "" {
		cmd.Println(field("Email", me.User.Email))
	}
	cmd.Println(field("Bikes", fmt.Sprintf("%d", len(me.BikeIDs))))
	return nil
}
