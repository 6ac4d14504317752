package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchwise-data/tacticore/internal/physical"
	"github.com/pitchwise-data/tacticore/internal/pitchcontrol"
	"github.com/pitchwise-data/tacticore/internal/tactical"
	"github.com/pitchwise-data/tacticore/internal/track"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	stats := []physical.Stats{
		{TrackID: 1, Team: track.TeamHome, TotalDistance: 9500, MaxSpeed: 8.4, AvgSpeed: 4.2, SprintCount: 12, Frames: 100},
		{TrackID: 2, Team: track.TeamAway, TotalDistance: 10100, MaxSpeed: 9.1, AvgSpeed: 4.5, SprintCount: 9, Frames: 100},
	}
	windows := []tactical.Snapshot{
		{WindowStart: 0, WindowEnd: 7499, PPDAHome: 6.5, PPDAHomeValid: true, TerritoryHome: 0.54, TerritoryValid: true},
		{WindowStart: 7500, WindowEnd: 14999}, // no defensive actions, no grids
	}
	grids := []pitchcontrol.Grid{
		{FrameID: 0, Width: 4, Height: 3, Home: []float64{0.9, 0.8, 0.4, 0.2, 0.9, 0.7, 0.5, 0.1, 0.8, 0.6, 0.4, 0.3}, Computed: true},
	}

	written, err := Generate(dir, "run-1", stats, windows, grids)
	require.NoError(t, err)
	require.Len(t, written, 3)

	for _, path := range written {
		info, err := os.Stat(path)
		require.NoError(t, err, path)
		assert.Greater(t, info.Size(), int64(0), path)
	}
	assert.Equal(t, filepath.Join(dir, "physical.html"), written[0])
	assert.Equal(t, filepath.Join(dir, "tactical.html"), written[1])
	assert.Equal(t, filepath.Join(dir, "control_heatmap.png"), written[2])
}

func TestGenerateSkipsEmptySections(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	written, err := Generate(dir, "run-2", nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, written, "nothing to report, nothing written")
}

func TestGenerateSkipsDegenerateGrids(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	grids := []pitchcontrol.Grid{
		{FrameID: 0, Width: 2, Height: 1, Home: []float64{0, 0}, Computed: true, Degenerate: true},
	}

	written, err := Generate(dir, "run-3", nil, nil, grids)
	require.NoError(t, err)
	assert.Empty(t, written, "degenerate-only grids produce no heatmap")
}
