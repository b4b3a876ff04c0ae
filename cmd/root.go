package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/meghashyamc/blobreindex/azure/blobstore"
	"github.com/meghashyamc/blobreindex/azure/searchindex"
	"github.com/meghashyamc/blobreindex/config"
	"github.com/meghashyamc/blobreindex/db/kvdb"
	"github.com/meghashyamc/blobreindex/logger"
	"github.com/meghashyamc/blobreindex/services/reindex"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	flagEnv     string
	flagTimeout time.Duration
	flagStrict  bool

	cfg *config.Config
	log logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "blobreindex",
	Short: "Re-index documents stored in a blob container against a managed search index",
	Long: `blobreindex drives a managed search service and the blob container its indexer reads from.
It can trigger an indexer run, clear the container, recreate the index schema, and upload files.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnv, "env", "", "config environment, selects config/config.<env>.yaml (default $ENV or local)")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "timeout for each request to the managed services (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagStrict, "strict", false, "exit with an error when run-indexer, delete-blobs or recreate-index fail")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(flagEnv)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg = c

	if cmd.Flags().Changed("timeout") && flagTimeout > 0 {
		cfg.Set("REQUEST_TIMEOUT", flagTimeout.String())
	}
	log = logger.New(cfg.GetLogLevel())

	return nil
}

// newService wires the service against the configured search service and
// container. The journal is optional on the command line; closeFn releases it.
func newService() (*reindex.Service, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	blobs, err := blobstore.New(log, cfg)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {}
	var journal reindex.Journal
	if len(cfg.GetKVDBPath()) > 0 {
		kvDB, err := kvdb.New(log, cfg)
		if err != nil {
			return nil, nil, err
		}
		journal = kvDB
		closeFn = func() {
			if err := kvDB.Close(); err != nil {
				log.Error("could not close kv database", "err", err.Error())
			}
		}
	}

	return reindex.New(log, cfg, searchindex.New(log, cfg), blobs, journal), closeFn, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
