package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bikeindex-cli/internal/adapters/driven/bikeindex"
	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
)

var bikesCmd = &cobra.Command{
	Use:   "bikes",
	Short: "List and register bikes",
}

var bikesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your bikes",
	Long: `List the bikes registered to the signed-in account.

Fetched bikes are saved locally. With --offline the local copies are listed
without calling the API.`,
	Args: cobra.NoArgs,
	RunE: runBikesList,
}

var bikesGetCmd = &cobra.Command{
	Use:   "get [bike-id]",
	Short: "Show one bike",
	Args:  cobra.ExactArgs(1),
	RunE:  runBikesGet,
}

var bikesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a bike",
	Args:  cobra.NoArgs,
	RunE:  runBikesCreate,
}

var bikesUpdateCmd = &cobra.Command{
	Use:   "update [bike-id]",
	Short: "Change fields of a bike",
	Args:  cobra.ExactArgs(1),
	RunE:  runBikesUpdate,
}

var (
	bikesJSON    bool
	bikesOffline bool
	bikeForm     bikeindex.BikeForm
)

func init() {
	bikesListCmd.Flags().BoolVar(&bikesOffline, "offline", false, "list local copies only")
	for _, c := range []*cobra.Command{bikesListCmd, bikesGetCmd} {
		c.Flags().BoolVar(&bikesJSON, "json", false, "output as JSON")
	}
	for _, c := range []*cobra.Command{bikesCreateCmd, bikesUpdateCmd} {
		c.Flags().StringVar(&bikeForm.Serial, "serial", "", "frame serial number")
		c.Flags().StringVar(&bikeForm.Manufacturer, "manufacturer", "", "manufacturer name")
		c.Flags().StringVar(&bikeForm.Color, "color", "", "primary frame colour")
		c.Flags().StringVar(&bikeForm.OwnerEmail, "owner-email", "", "owner email address")
		c.Flags().StringVar(&bikeForm.Title, "model", "", "frame model")
		c.Flags().IntVar(&bikeForm.Year, "year", 0, "model year")
	}
	_ = bikesCreateCmd.MarkFlagRequired("serial")
	_ = bikesCreateCmd.MarkFlagRequired("manufacturer")

	bikesCmd.AddCommand(bikesListCmd)
	bikesCmd.AddCommand(bikesGetCmd)
	bikesCmd.AddCommand(bikesCreateCmd)
	bikesCmd.AddCommand(bikesUpdateCmd)
	rootCmd.AddCommand(bikesCmd)
}

func runBikesList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if bikesOffline {
		if bikeStore == nil {
			return errNotConfigured
		}
		bikes, err := bikeStore.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list local bikes: %w", err)
		}
		return outputBikes(cmd, bikes)
	}

	if err := ensureSession(ctx); err != nil {
		return err
	}
	resp, err := bikeindex.AuthenticatedGet(ctx, apiClient, bikeindex.MyBikes())
	if err != nil {
		return userError("failed to list bikes", err)
	}
	for _, b := range resp.Bikes {
		saveLocal(cmd, b)
	}
	return outputBikes(cmd, resp.Bikes)
}

func runBikesGet(cmd *cobra.Command, args []string) error {
	id, err := parseBikeID(args[0])
	if err != nil {
		return err
	}
	if err := ensureSession(cmd.Context()); err != nil {
		return err
	}

	resp, err := bikeindex.AuthenticatedGet(cmd.Context(), apiClient, bikeindex.FetchBike(id))
	if err != nil {
		return userError("failed to fetch bike", err)
	}
	saveLocal(cmd, resp.Bike)

	if bikesJSON {
		return outputJSON(cmd, resp.Bike)
	}
	printBike(cmd, resp.Bike)
	return nil
}

func runBikesCreate(cmd *cobra.Command, _ []string) error {
	if err := ensureSession(cmd.Context()); err != nil {
		return err
	}

	resp, err := bikeindex.AuthenticatedPost(cmd.Context(), apiClient, bikeindex.CreateBike(bikeForm))
	if err != nil {
		return userError("failed to register bike", err)
	}
	saveLocal(cmd, resp.Bike)

	cmd.Println(successStyle.Render(fmt.Sprintf("Registered bike %d", resp.Bike.ID)))
	printBike(cmd, resp.Bike)
	return nil
}

func runBikesUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseBikeID(args[0])
	if err != nil {
		return err
	}
	if err := ensureSession(cmd.Context()); err != nil {
		return err
	}

	resp, err := bikeindex.AuthenticatedPost(cmd.Context(), apiClient, bikeindex.UpdateBike(id, bikeForm))
	if err != nil {
		return userError("failed to update bike", err)
	}
	saveLocal(cmd, resp.Bike)

	cmd.Println(successStyle.Render(fmt.Sprintf("Updated bike %d", resp.Bike.ID)))
	return nil
}

func parseBikeID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid bike id %q", raw)
	}
	return id, nil
}

// saveLocal keeps a local copy; failures only cost the offline view.
func saveLocal(cmd *cobra.Command, bike domain.Bike) {
	if bikeStore == nil {
		return
	}
	if nowClock != nil {
		bike.UpdatedAt = nowClock.Now()
	}
	if err := bikeStore.Save(cmd.Context(), bike); err != nil {
		cmd.PrintErrf("warning: could not save bike %d locally: %v\n", bike.ID, err)
	}
}

func outputBikes(cmd *cobra.Command, bikes []domain.Bike) error {
	if bikesJSON {
		return outputJSON(cmd, bikes)
	}
	if len(bikes) == 0 {
		cmd.Println("No bikes found.")
		return nil
	}
	for _, b := range bikes {
		title := b.Title
		if title == "" {
			title = b.Manufacturer
		}
		cmd.Printf("  [%d] %s %s\n", b.ID, title, mutedStyle.Render(b.Serial))
	}
	return nil
}

func printBike(cmd *cobra.Command, b domain.Bike) {
	cmd.Println(titleStyle.Render(b.Title))
	cmd.Println(field("ID", strconv.FormatInt(b.ID, 10)))
	if b.Manufacturer != "" {
		cmd.Println(field("Manufacturer", b.Manufacturer))
	}
	if b.Serial != "" {
		cmd.Println(field("Serial", b.Serial))
	}
	cmd.Println(field("Photos", strconv.Itoa(len(b.Images))))
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
