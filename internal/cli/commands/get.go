package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"capfs/internal/storage"
)

var getCmd = &cobra.Command{
	Use:   "get <src-path> <host-dir>",
	Short: "Export a store subtree to a host directory",
	Args:  cobra.ExactArgs(2),
	RunE:  runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	destDir, err := filepath.Abs(args[1])
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	fs := storage.NewSQLFS(store)

	stats, err := storage.ExportTree(cmd.Context(), fs, args[0], destDir)
	if err != nil {
		return err
	}
	fmt.Printf("exported %d files, %d dirs (%d bytes) to %s\n",
		stats.Files, stats.Dirs, stats.Bytes, destDir)
	return nil
}
