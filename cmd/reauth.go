package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s0up4200/bazarrwatch/entry"
)

// reauthCmd represents the reauth command
var reauthCmd = &cobra.Command{
	Use:   "reauth",
	Short: "Replace the API key of a configured entry",
	Long: `Validate a new API key against the stored Bazarr URL and save it.

A running instance picks up the new key through POST /api/reauth instead.`,
	RunE: runReauth,
}

func init() {
	reauthCmd.Flags().StringVar(&entryID, "entry", "", "entry ID (optional when only one entry exists)")
	reauthCmd.Flags().StringVar(&apiKey, "api-key", "", "new Bazarr API key")
}

func runReauth(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	e, err := store.Resolve(entryID)
	if err != nil {
		return err
	}

	flow := entry.NewFlow(store, newBazarrClient(), logger)

	res, err := flow.Reauth(context.Background(), e.ID, apiKey)
	if err != nil {
		return err
	}

	printResult(res)
	if !res.Succeeded() {
		if apiKey == "" {
			return fmt.Errorf("--api-key is required")
		}
		return fmt.Errorf("reauth failed: %s", res.Errors["base"])
	}
	return nil
}
