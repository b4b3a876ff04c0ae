package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/meghashyamc/blobreindex/api"
	"github.com/meghashyamc/blobreindex/logger"
	"github.com/meghashyamc/blobreindex/services/reindex"
	"github.com/meghashyamc/blobreindex/validation"
	"github.com/spf13/cobra"
)

var (
	flagUploadName      string
	flagOperationsLimit int
	flagPruneOlderThan  time.Duration
)

type uploadArgs struct {
	Name string `json:"name" validate:"valid_blob_name"`
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return api.Run(cmd.Context(), cfg, log)
	},
}

var runIndexerCmd = &cobra.Command{
	Use:   "run-indexer",
	Short: "Trigger a run of the configured indexer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		service, closeFn, err := newService()
		if err != nil {
			return err
		}
		defer closeFn()

		result := service.RunIndexer(cmd.Context())
		if err := printJSON(cmd, result); err != nil {
			return err
		}
		if result.Status != reindex.ResultStatusOK {
			return bestEffort(errors.New(result.Details))
		}
		return nil
	},
}

var deleteBlobsCmd = &cobra.Command{
	Use:   "delete-blobs",
	Short: "Delete every blob in the configured container",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		service, closeFn, err := newService()
		if err != nil {
			return err
		}
		defer closeFn()

		deleted, err := service.DeleteAllBlobs(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d blobs from %s\n", deleted, service.ContainerName())
		return bestEffort(err)
	},
}

var recreateIndexCmd = &cobra.Command{
	Use:   "recreate-index",
	Short: "Delete the configured index if it exists and create it with the default schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		service, closeFn, err := newService()
		if err != nil {
			return err
		}
		defer closeFn()

		return bestEffort(service.RecreateIndex(cmd.Context()))
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a file to the container, replacing any blob with the same name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		blobName := uploadBlobName(args[0], flagUploadName)
		if err := validateBlobName(log, blobName); err != nil {
			return fmt.Errorf("%s: %w", blobName, err)
		}

		service, closeFn, err := newService()
		if err != nil {
			return err
		}
		defer closeFn()

		return service.UploadFile(cmd.Context(), args[0], blobName)
	},
}

var emptyIndexCmd = &cobra.Command{
	Use:   "empty-index",
	Short: "Delete every blob in the container, then recreate the index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		service, closeFn, err := newService()
		if err != nil {
			return err
		}
		defer closeFn()

		return service.EmptyIndex(cmd.Context())
	},
}

var indexerStatusCmd = &cobra.Command{
	Use:   "indexer-status",
	Short: "Show the execution status of the configured indexer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		service, closeFn, err := newService()
		if err != nil {
			return err
		}
		defer closeFn()

		status, err := service.GetIndexerStatus(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, status)
	},
}

var operationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "List recently recorded operations, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		service, closeFn, err := newService()
		if err != nil {
			return err
		}
		defer closeFn()

		operations, err := service.ListOperations(flagOperationsLimit)
		if err != nil {
			return err
		}
		return printJSON(cmd, operations)
	},
}

var pruneOperationsCmd = &cobra.Command{
	Use:   "prune-operations",
	Short: "Delete recorded operations older than the journal retention",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		service, closeFn, err := newService()
		if err != nil {
			return err
		}
		defer closeFn()

		var pruned int
		if cmd.Flags().Changed("older-than") {
			pruned, err = service.PruneOperations(time.Now().UTC().Add(-flagPruneOlderThan))
		} else {
			pruned, err = service.PruneExpiredOperations()
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pruned %d operations\n", pruned)
		return nil
	},
}

// uploadBlobName is the --name flag if set, otherwise the file's base name.
func uploadBlobName(path string, name string) string {
	if name != "" {
		return name
	}
	return filepath.Base(path)
}

func validateBlobName(logger logger.Logger, blobName string) error {
	validator, err := validation.New(logger)
	if err != nil {
		return err
	}
	return validator.Validate(uploadArgs{Name: blobName})
}

// bestEffort drops err unless --strict is set. The service has already logged it.
func bestEffort(err error) error {
	if err != nil && flagStrict {
		return err
	}
	return nil
}

func init() {
	uploadCmd.Flags().StringVar(&flagUploadName, "name", "", "blob name (default is the file's base name)")
	operationsCmd.Flags().IntVar(&flagOperationsLimit, "limit", 20, "maximum number of operations to list")
	pruneOperationsCmd.Flags().DurationVar(&flagPruneOlderThan, "older-than", 0, "prune operations started longer ago than this (default is the configured journal retention)")

	rootCmd.AddCommand(serveCmd, runIndexerCmd, deleteBlobsCmd, recreateIndexCmd, uploadCmd, emptyIndexCmd, indexerStatusCmd, operationsCmd, pruneOperationsCmd)
}
