package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dyluth/drey/internal/printer"
)

var getCmd = &cobra.Command{
	Use:   "get [path]",
	Short: "Read a value from the persisted snapshot",
	Long: `Load the persisted snapshot (applying schema migrations if the stored
version is older than drey.yml's) and print the value at the given
dot-separated path as indented JSON.

With no path, the whole state tree is printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	sess, err := newSession(configPath)
	if err != nil {
		return err
	}
	defer sess.close()

	if sess.manager.Load() == nil {
		return printer.Error(
			"No snapshot could be loaded",
			"Either nothing has been persisted under this key, or the entry could not be decoded.",
			[]string{"Run 'drey info' to inspect the stored entry"},
		)
	}

	path := ""
	if len(args) == 1 {
		path = args[0]
	}

	value, ok := sess.store.Get(path)
	if !ok {
		return printer.Error(
			"Path not found in snapshot",
			"The snapshot loaded, but nothing exists at '"+path+"'.",
			[]string{"Run 'drey get' without a path to see the whole tree"},
		)
	}

	return writeJSON(os.Stdout, value)
}
