package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s0up4200/bazarrwatch/entry"
)

// setupCmd represents the setup command
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Add a Bazarr instance",
	Long: `Validate the URL and API key against Bazarr and store them as a new entry.

The URL and key fall back to bazarr.url and bazarr.api_key from the config.`,
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().StringVar(&urlFlag, "url", "", "Bazarr base URL, e.g. http://localhost:6767")
	setupCmd.Flags().StringVar(&apiKey, "api-key", "", "Bazarr API key")
}

func runSetup(cmd *cobra.Command, args []string) error {
	url, key := urlFlag, apiKey
	if url == "" {
		url = cfg.Bazarr.URL
	}
	if key == "" {
		key = cfg.Bazarr.APIKey
	}
	if url == "" || key == "" {
		return fmt.Errorf("both --url and --api-key are required")
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	flow := entry.NewFlow(store, newBazarrClient(), logger)

	fmt.Printf("Testing connection to Bazarr at %s...\n", url)
	res, err := flow.Setup(context.Background(), url, key)
	if err != nil {
		return err
	}

	printResult(res)
	if res.Type == entry.ResultForm {
		return fmt.Errorf("setup failed: %s", res.Errors["base"])
	}
	return nil
}
