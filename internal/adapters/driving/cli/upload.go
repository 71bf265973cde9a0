package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bikeindex-cli/internal/adapters/driven/bikeindex"
)

var (
	uploadWait    bool
	uploadTimeout time.Duration
)

var uploadCmd = &cobra.Command{
	Use:   "upload [bike-id] [image]",
	Short: "Upload a photo of a bike",
	Long: `Uploads a photo in the background and attaches it to the bike.

The upload is recorded before it starts. If the command is interrupted,
'bikeindex uploads resume' sends it again.`,
	Args: cobra.ExactArgs(2),
	RunE: runUpload,
}

var uploadsCmd = &cobra.Command{
	Use:   "uploads",
	Short: "Manage background uploads",
}

var uploadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploads that have not completed",
	Args:  cobra.NoArgs,
	RunE:  runUploadsList,
}

var uploadsResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resend uploads left over from an earlier run",
	Args:  cobra.NoArgs,
	RunE:  runUploadsResume,
}

func init() {
	uploadCmd.Flags().BoolVar(&uploadWait, "wait", true, "wait for the upload to complete")
	uploadCmd.Flags().DurationVar(&uploadTimeout, "timeout", 10*time.Minute, "how long to wait")

	uploadsCmd.AddCommand(uploadsListCmd)
	uploadsCmd.AddCommand(uploadsResumeCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(uploadsCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	if uploader == nil {
		return errNotConfigured
	}
	id, err := parseBikeID(args[0])
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	if err := ensureSession(cmd.Context()); err != nil {
		return err
	}

	done := make(chan bikeindex.UploadResult, 1)
	if uploadWait {
		setProgressSink(func(p bikeindex.UploadProgress) {
			if p.Total > 0 {
				cmd.PrintErrf("\r  %s %3d%%", mutedStyle.Render("uploading"), p.Sent*100/p.Total)
			}
		})
		defer setProgressSink(nil)
	}

	endpoint := bikeindex.UploadImage(id, bikeindex.ImagePayload{Name: filepath.Base(args[1]), Data: data})
	taskID, err := uploader.BackgroundPost(cmd.Context(), endpoint, func(r bikeindex.UploadResult) {
		done <- r
	})
	if err != nil {
		return userError("failed to start upload", err)
	}

	if !uploadWait {
		cmd.Printf("Upload %s queued.\n", taskID)
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), uploadTimeout)
	defer cancel()
	select {
	case r := <-done:
		cmd.PrintErrln()
		if r.Err != nil {
			return userError("upload failed", r.Err)
		}
		cmd.Println(successStyle.Render(fmt.Sprintf("Photo %d added to bike %d", r.Image.ID, r.BikeID)))
		return nil
	case <-ctx.Done():
		cmd.PrintErrln()
		return fmt.Errorf("upload %s still running: run 'bikeindex uploads resume' later", taskID)
	}
}

func runUploadsList(cmd *cobra.Command, _ []string) error {
	if uploadStore == nil {
		return errNotConfigured
	}

	pending, err := uploadStore.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list uploads: %w", err)
	}
	if len(pending) == 0 {
		cmd.Println("No pending uploads.")
		return nil
	}
	for _, p := range pending {
		cmd.Printf("  %s  bike %d  %s\n", p.TaskID, p.BikeID,
			mutedStyle.Render("since "+p.StartedAt.Local().Format(time.DateTime)))
	}
	return nil
}

func runUploadsResume(cmd *cobra.Command, _ []string) error {
	if uploader == nil || transfers == nil {
		return errNotConfigured
	}
	if err := ensureSession(cmd.Context()); err != nil {
		return err
	}

	n, err := uploader.Resume(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to resume uploads: %w", err)
	}
	if n == 0 {
		cmd.Println("No pending uploads.")
		return nil
	}

	cmd.Printf("Resending %d upload(s)...\n", n)
	transfers.Wait()

	remaining, err := uploadStore.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list uploads: %w", err)
	}
	cmd.Printf("%d finished, %d still pending.\n", n-len(remaining), len(remaining))
	return nil
}
