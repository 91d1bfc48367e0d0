package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"capfs/internal/common"
	"capfs/internal/storage"
	"capfs/internal/vfs"
)

var writeCmd = &cobra.Command{
	Use:   "write <path>",
	Short: "Write stdin to a file in the store",
	Long: `Write stdin to a file in the store, creating the file if needed.

By default the file is recreated, so its content is exactly what was piped
in. With --append the data lands at the current end of file instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runWrite,
}

var writeAppend bool

func init() {
	writeCmd.Flags().BoolVarP(&writeAppend, "append", "a", false, "append instead of replacing")
	rootCmd.AddCommand(writeCmd)
}

func runWrite(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	fs := storage.NewSQLFS(store)
	ctx := cmd.Context()
	path := args[0]

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}

	offset := uint64(0)
	st, statErr := fs.Stat(ctx, path)
	switch {
	case statErr == nil && writeAppend:
		offset = st.Size
	case statErr == nil:
		// Replace: drop the old node so stale bytes past the new end vanish.
		if err := fs.Remove(ctx, path); err != nil {
			return err
		}
	case !errors.Is(statErr, common.ErrNotFound):
		return statErr
	}

	var h vfs.FileHandle[vfs.File, vfs.WriteOnly]
	if statErr == nil && writeAppend {
		h, err = vfs.OpenFile[vfs.WriteOnly](ctx, fs, path, 0o644)
	} else {
		h, err = vfs.CreateFile[vfs.WriteOnly](ctx, fs, path, 0o644)
	}
	if err != nil {
		return err
	}

	n, err := vfs.Write(ctx, fs, h, offset, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %d bytes to %s\n", n, path)
	return nil
}
