package commands

import (
	"os"

	"github.com/spf13/cobra"

	"capfs/internal/storage"
	"capfs/internal/vfs"
)

var catCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Print a file from the store to stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  runCat,
}

func init() {
	rootCmd.AddCommand(catCmd)
}

const catChunkSize = 1 << 16

func runCat(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	fs := storage.NewSQLFS(store)
	ctx := cmd.Context()

	h, err := vfs.OpenFile[vfs.ReadOnly](ctx, fs, args[0], 0)
	if err != nil {
		return err
	}

	offset := uint64(0)
	for {
		data, err := vfs.Read(ctx, fs, h, offset, catChunkSize)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return nil
		}
		if _, err := os.Stdout.Write(data); err != nil {
			return err
		}
		offset += uint64(len(data))
	}
}
