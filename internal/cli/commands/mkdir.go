package commands

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"capfs/internal/common"
	"capfs/internal/storage"
	"capfs/internal/vfs"
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <path>...",
	Short: "Create directories in the store",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMkdir,
}

var mkdirParents bool

func init() {
	mkdirCmd.Flags().BoolVarP(&mkdirParents, "parents", "p", false, "create parent directories as needed")
	rootCmd.AddCommand(mkdirCmd)
}

func runMkdir(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	fs := storage.NewSQLFS(store)
	ctx := cmd.Context()

	for _, arg := range args {
		path, err := common.NormalizePath(arg)
		if err != nil {
			return err
		}
		if !mkdirParents {
			if _, err := vfs.CreateDir(ctx, fs, path, 0o755); err != nil {
				return err
			}
			continue
		}
		var cur string
		for _, part := range strings.Split(strings.TrimPrefix(path, "/"), "/") {
			cur = cur + "/" + part
			_, err := vfs.CreateDir(ctx, fs, cur, 0o755)
			if err != nil && !errors.Is(err, common.ErrExists) {
				return err
			}
		}
	}
	return nil
}
