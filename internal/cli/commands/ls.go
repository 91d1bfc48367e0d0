package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"capfs/internal/storage"
	"capfs/internal/vfs"
)

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a directory in the store",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLs,
}

var lsLong bool

func init() {
	lsCmd.Flags().BoolVarP(&lsLong, "long", "l", false, "long listing with size, version, and mtime")
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) error {
	path := "/"
	if len(args) > 0 {
		path = args[0]
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	fs := storage.NewSQLFS(store)
	ctx := cmd.Context()

	h, err := vfs.OpenDir(ctx, fs, path, 0)
	if err != nil {
		return err
	}
	entries, err := vfs.ReadDir(ctx, fs, h)
	if err != nil {
		return err
	}

	for _, st := range entries {
		name := st.Name
		if st.Qid.IsDir() {
			name += "/"
		}
		if lsLong {
			fmt.Printf("%o %8d v%-4d %s %s\n", st.Mode, st.Size, st.Qid.Version,
				st.Mtime.Format("2006-01-02 15:04"), name)
		} else {
			fmt.Println(name)
		}
	}
	return nil
}
