package commands

import (
	"github.com/spf13/cobra"

	"github.com/dyluth/drey/internal/printer"
	"github.com/dyluth/drey/pkg/persist"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the persisted snapshot",
	Long: `Remove the persisted snapshot for the configured key.

Only the stored entry is removed; any running application keeps its
in-memory state until it next saves.`,
	RunE: runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	sess, err := newSession(configPath)
	if err != nil {
		return err
	}
	defer sess.close()

	var failed error
	cancel := sess.manager.OnEvent(func(ev persist.Event) {
		if ev.Type == persist.EventError {
			failed = ev.Payload.(error)
		}
	})
	defer cancel()

	sess.manager.Clear()
	if failed != nil {
		return printer.Error("Failed to clear snapshot", failed.Error(), nil)
	}

	printer.Success("Removed persisted snapshot for key '%s'\n", sess.cfg.Key)
	return nil
}
