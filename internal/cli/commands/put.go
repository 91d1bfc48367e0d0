package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"capfs/internal/storage"
)

var putCmd = &cobra.Command{
	Use:   "put <host-dir> [dest-path]",
	Short: "Import a host directory tree into the store",
	Long: `Import a host directory tree into the store under dest-path (default "/").

Project config controls filtering: .gitignore rules apply unless disabled,
includes force paths in, excludes force paths out. The .capfs directory is
never imported.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runPut,
}

func init() {
	rootCmd.AddCommand(putCmd)
}

func runPut(cmd *cobra.Command, args []string) error {
	srcDir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	destPath := "/"
	if len(args) > 1 {
		destPath = args[1]
	}

	cfg, err := LoadProjectConfig(".")
	if err != nil {
		return err
	}
	filter := BuildFileFilterFromConfig(srcDir, cfg)

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	fs := storage.NewSQLFS(store)

	stats, err := storage.ImportTree(cmd.Context(), fs, srcDir, destPath, filter)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d files, %d dirs (%d bytes), skipped %d files, %d dirs\n",
		stats.Files, stats.Dirs, stats.Bytes, stats.Skipped, stats.SkippedDirs)
	return nil
}
