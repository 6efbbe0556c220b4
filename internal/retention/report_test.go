package retention

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arenachat/pkg/config"
	"arenachat/pkg/models"
	"arenachat/pkg/state"
)

func TestRunWritesRunReport(t *testing.T) {
	setupRetention(t, config.RetentionConfig{Enabled: true, Period: config.Duration(time.Hour)})

	saveThread(t, "stale", models.ThreadStatusArchived, 2*time.Hour)

	require.NoError(t, RunImmediate())

	files, err := filepath.Glob(filepath.Join(reportDir(state.PathsVar.Retention), "run-*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	var rep runReport
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, 1, rep.Scanned)
	assert.Equal(t, []string{"stale"}, rep.Purged)
	assert.False(t, rep.DryRun)
	assert.Zero(t, rep.Errors)
}
