package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"capfs/internal/common"
	"capfs/internal/storage"
	"capfs/internal/vfs"
)

var rmCmd = &cobra.Command{
	Use:   "rm <path>...",
	Short: "Remove files or directories from the store",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRm,
}

var rmRecursive bool

func init() {
	rmCmd.Flags().BoolVarP(&rmRecursive, "recursive", "r", false, "remove directories and their contents")
	rootCmd.AddCommand(rmCmd)
}

func runRm(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	fs := storage.NewSQLFS(store)
	ctx := cmd.Context()

	for _, arg := range args {
		if rmRecursive {
			if err := removeRecursive(cmd, fs, arg); err != nil {
				return err
			}
			continue
		}
		if err := fs.Remove(ctx, arg); err != nil {
			return err
		}
	}
	return nil
}

// removeRecursive deletes a subtree bottom-up. The backend only removes
// empty directories, so children go first.
func removeRecursive(cmd *cobra.Command, fs vfs.Backend, path string) error {
	ctx := cmd.Context()
	path, err := common.NormalizePath(path)
	if err != nil {
		return err
	}
	if path == "/" {
		return fmt.Errorf("refusing to remove the root directory")
	}

	st, err := fs.Stat(ctx, path)
	if err != nil {
		return err
	}
	if st.Qid.IsDir() {
		h, err := vfs.OpenDir(ctx, fs, path, 0)
		if err != nil {
			return err
		}
		entries, err := vfs.ReadDir(ctx, fs, h)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err := removeRecursive(cmd, fs, common.JoinChild(path, entry.Name)); err != nil {
				return err
			}
		}
	}
	return fs.Remove(ctx, path)
}
