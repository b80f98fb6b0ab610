package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/drey/internal/printer"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show details of the persisted snapshot",
	Long: `Show whether a persisted snapshot exists for the configured key, and
if so its stored size, schema version and save timestamp.

The snapshot is inspected without decoding the full payload, so info is
safe to run against large entries.`,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	sess, err := newSession(configPath)
	if err != nil {
		return err
	}
	defer sess.close()

	info := sess.manager.Info()

	switch {
	case info.Unreadable:
		return printer.Error(
			"Storage backend could not be read",
			"The backend did not answer, so it is unknown whether a snapshot exists.",
			[]string{"Check the backend settings in drey.yml and that the backend is reachable"},
		)

	case !info.Exists:
		printer.Info("No persisted snapshot found for key '%s'\n", sess.cfg.Key)
		return nil

	case info.Corrupt:
		return printer.Error(
			"Persisted snapshot is corrupt",
			"The stored entry exists but could not be decoded.",
			[]string{
				"Run 'drey clear' to remove it and start fresh",
				"Check that compress/checksum settings in drey.yml match how it was written",
			},
		)

	default:
		savedAt := time.UnixMilli(info.Timestamp).Format(time.RFC3339)
		printer.Field("Key", "%s", sess.cfg.Key)
		printer.Field("Size", "%d bytes", info.Size)
		printer.Field("Version", "%d", info.Version)
		printer.Field("Saved at", "%s", savedAt)
		return nil
	}
}
