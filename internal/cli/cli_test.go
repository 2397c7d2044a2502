package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"work", "goal"}, splitList(" work, ,goal,"))
	assert.Nil(t, splitList(""))
}

func TestParseTime(t *testing.T) {
	ts, err := parseTime("2026-03-01T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), ts)

	ts, err = parseTime("2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, 2026, ts.Year())
	assert.Equal(t, time.March, ts.Month())
	assert.Equal(t, 1, ts.Day())

	_, err = parseTime("yesterday")
	assert.Error(t, err)

	ts, err = parseTime("")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, time.Minute)
}

func TestSeverityColor(t *testing.T) {
	assert.Same(t, highColor, severityColor(0.9))
	assert.Same(t, midColor, severityColor(0.5))
	assert.Same(t, lowColor, severityColor(0.1))
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"put", "import", "export", "stats", "search", "analyze", "events", "insights", "profile", "agency", "config"} {
		cmd, _, err := RootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
	cmd, _, err := RootCmd.Find([]string{"profile", "history"})
	require.NoError(t, err)
	assert.Equal(t, "history", cmd.Name())
}
