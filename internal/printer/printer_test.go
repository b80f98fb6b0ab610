package printer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	t.Run("returns error carrying only the title", func(t *testing.T) {
		err := Error("Config not found", "No drey.yml in the current directory", nil)
		require.Error(t, err)
		require.Equal(t, "Config not found", err.Error())
	})

	t.Run("suggestions do not leak into the returned error", func(t *testing.T) {
		err := Error("Backend unreachable", "Redis did not answer", []string{
			"Check the addr field in drey.yml",
			"Verify the server is running",
		})
		require.Error(t, err)
		require.Equal(t, "Backend unreachable", err.Error())
	})
}

// Error prints rich, colorized output to stderr and returns only the
// title for Cobra's error handling; the split avoids duplicate output.
