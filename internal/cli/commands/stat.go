package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"capfs/internal/storage"
)

var statCmd = &cobra.Command{
	Use:   "stat <path>",
	Short: "Show metadata for a node in the store",
	Args:  cobra.ExactArgs(1),
	RunE:  runStat,
}

func init() {
	rootCmd.AddCommand(statCmd)
}

func runStat(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	fs := storage.NewSQLFS(store)

	st, err := fs.Stat(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	kind := "file"
	if st.Qid.IsDir() {
		kind = "dir"
	}
	fmt.Printf("Name:    %s\n", st.Name)
	fmt.Printf("Kind:    %s\n", kind)
	fmt.Printf("Size:    %d\n", st.Size)
	fmt.Printf("Mode:    %o\n", st.Mode)
	fmt.Printf("Version: %d\n", st.Qid.Version)
	fmt.Printf("Qid:     %#x\n", st.Qid.Path)
	fmt.Printf("Mtime:   %s\n", st.Mtime.Format("2006-01-02 15:04:05"))
	fmt.Printf("Owner:   %s:%s\n", st.UID, st.GID)
	return nil
}
