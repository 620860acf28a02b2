package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/bazarrwatch/bazarr"
	"github.com/s0up4200/bazarrwatch/coordinator"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check credentials and fetch one snapshot",
	Long:  `Run the startup check and a single refresh against the selected entry, then print the result.`,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&entryID, "entry", "", "entry ID (optional when only one entry exists)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	e, err := store.Resolve(entryID)
	if err != nil {
		return err
	}

	coord := coordinator.New(newBazarrClient(), e.ConnectionConfig(), logger)
	defer coord.Shutdown()

	return checkStatus(context.Background(), os.Stdout, coord)
}

// checkStatus runs one startup check and one refresh, writing a report to w
func checkStatus(ctx context.Context, w io.Writer, coord *coordinator.Coordinator) error {
	fmt.Fprintf(w, "Testing connection to Bazarr at %s...\n", coord.Config().BaseURL)

	if err := coord.Startup(ctx); err != nil {
		fmt.Fprintf(w, "✗ %v\n", err)
		return err
	}
	fmt.Fprintln(w, "✓ Connection successful!")

	if err := coord.Refresh(ctx); err != nil {
		fmt.Fprintf(w, "✗ %v\n", err)
		return err
	}

	snap, _ := coord.Snapshot()
	printSnapshot(w, snap)
	return nil
}

func printSnapshot(w io.Writer, snap bazarr.Snapshot) {
	fmt.Fprintf(w, "\nBazarr %s\n", snap.Version)
	fmt.Fprintf(w, "- Wanted movies:   %d\n", snap.WantedMovies)
	fmt.Fprintf(w, "- Wanted episodes: %d\n", snap.WantedEpisodes)

	if !snap.HasHealthIssues() {
		fmt.Fprintln(w, "- Health: OK")
		return
	}

	fmt.Fprintf(w, "- Health issues:   %d\n", len(snap.HealthIssues))
	for _, issue := range snap.HealthIssues {
		fmt.Fprintf(w, "  • %s\n", describeIssue(issue))
	}
}

// describeIssue renders one health record, which Bazarr does not guarantee to be an object
func describeIssue(issue any) string {
	record, ok := issue.(map[string]any)
	if !ok {
		return fmt.Sprint(issue)
	}

	parts := make([]string, 0, 2)
	for _, key := range []string{"object", "issue"} {
		if v, ok := record[key]; ok {
			parts = append(parts, fmt.Sprint(v))
		}
	}
	if len(parts) == 0 {
		return fmt.Sprint(record)
	}
	return strings.Join(parts, ": ")
}
