// Package report renders analysis output as report artifacts: physical
// and tactical charts as standalone HTML, and the averaged control field
// as a heatmap PNG.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/pitchwise-data/tacticore/internal/geo"
	"github.com/pitchwise-data/tacticore/internal/physical"
	"github.com/pitchwise-data/tacticore/internal/pitchcontrol"
	"github.com/pitchwise-data/tacticore/internal/tactical"
)

// Generate writes all report artifacts for one run into dir and returns
// the paths written. Artifacts with no data behind them are skipped, not
// errors: a partial run still gets a partial report.
func Generate(dir, runID string, stats []physical.Stats, windows []tactical.Snapshot, grids []pitchcontrol.Grid) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report dir: %w", err)
	}

	var written []string
	if len(stats) > 0 {
		path := filepath.Join(dir, "physical.html")
		if err := writePhysicalCharts(path, runID, stats); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if len(windows) > 0 {
		path := filepath.Join(dir, "tactical.html")
		if err := writeTacticalCharts(path, runID, windows); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if avg := pitchcontrol.AverageGrids(grids); avg != nil {
		path := filepath.Join(dir, "control_heatmap.png")
		if err := writeControlHeatmap(path, avg); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	return written, nil
}

// writePhysicalCharts renders per-player distance, top speed and sprint
// bars on one page.
func writePhysicalCharts(path, runID string, stats []physical.Stats) error {
	labels := make([]string, len(stats))
	distance := make([]opts.BarData, len(stats))
	topSpeed := make([]opts.BarData, len(stats))
	sprints := make([]opts.BarData, len(stats))
	for i, s := range stats {
		labels[i] = fmt.Sprintf("#%d (%s)", s.TrackID, s.Team)
		distance[i] = opts.BarData{Value: geo.MetersToKm(s.TotalDistance)}
		topSpeed[i] = opts.BarData{Value: geo.ConvertSpeed(s.MaxSpeed, geo.KMPH)}
		sprints[i] = opts.BarData{Value: s.SprintCount}
	}

	distBar := charts.NewBar()
	distBar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Distance Covered", Subtitle: "km"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	distBar.SetXAxis(labels).AddSeries("distance", distance)

	speedBar := charts.NewBar()
	speedBar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Top Speed", Subtitle: "km/h"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	speedBar.SetXAxis(labels).AddSeries("top speed", topSpeed)

	sprintBar := charts.NewBar()
	sprintBar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Sprints", Subtitle: "count"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	sprintBar.SetXAxis(labels).AddSeries("sprints", sprints)

	page := components.NewPage()
	page.PageTitle = "Physical Report " + runID
	page.AddCharts(distBar, speedBar, sprintBar)
	return renderPage(path, page)
}

// writeTacticalCharts renders PPDA and territory share per window.
// Windows where PPDA is undefined contribute no point rather than a
// fabricated zero.
func writeTacticalCharts(path, runID string, windows []tactical.Snapshot) error {
	labels := make([]string, len(windows))
	ppdaHome := make([]opts.LineData, len(windows))
	ppdaAway := make([]opts.LineData, len(windows))
	territory := make([]opts.LineData, len(windows))
	for i, w := range windows {
		labels[i] = fmt.Sprintf("%d-%d", w.WindowStart, w.WindowEnd)
		ppdaHome[i] = opts.LineData{Value: "-"}
		ppdaAway[i] = opts.LineData{Value: "-"}
		territory[i] = opts.LineData{Value: "-"}
		if w.PPDAHomeValid {
			ppdaHome[i] = opts.LineData{Value: w.PPDAHome}
		}
		if w.PPDAAwayValid {
			ppdaAway[i] = opts.LineData{Value: w.PPDAAway}
		}
		if w.TerritoryValid {
			territory[i] = opts.LineData{Value: w.TerritoryHome}
		}
	}

	ppdaLine := charts.NewLine()
	ppdaLine.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Pressing Intensity (PPDA)", Subtitle: "lower is more aggressive; gaps mean no defensive actions"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	ppdaLine.SetXAxis(labels).
		AddSeries("home", ppdaHome).
		AddSeries("away", ppdaAway)

	terrLine := charts.NewLine()
	terrLine.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Territory", Subtitle: "home control share"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	terrLine.SetXAxis(labels).AddSeries("home share", territory)

	page := components.NewPage()
	page.PageTitle = "Tactical Report " + runID
	page.AddCharts(ppdaLine, terrLine)
	return renderPage(path, page)
}

func renderPage(path string, page *components.Page) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return nil
}

// controlField adapts a Grid to the plotter.GridXYZ interface with cell
// centers in pitch meters.
type controlField struct {
	g *pitchcontrol.Grid
}

func (c controlField) Dims() (int, int) { return c.g.Width, c.g.Height }
func (c controlField) Z(ix, iy int) float64 {
	return c.g.HomeAt(ix, iy)
}
func (c controlField) X(ix int) float64 {
	return (float64(ix) + 0.5) * geo.PitchLength / float64(c.g.Width)
}
func (c controlField) Y(iy int) float64 {
	return (float64(iy) + 0.5) * geo.PitchWidth / float64(c.g.Height)
}

// writeControlHeatmap renders the averaged control field as a PNG, away
// control in blue through home control in red.
func writeControlHeatmap(path string, g *pitchcontrol.Grid) error {
	cm := moreland.SmoothBlueRed()
	cm.SetMin(0)
	cm.SetMax(1)
	hm := plotter.NewHeatMap(controlField{g: g}, cm.Palette(255))
	hm.Min, hm.Max = 0, 1

	p := plot.New()
	p.Title.Text = "Average Pitch Control (home)"
	p.X.Label.Text = "Pitch length (m)"
	p.Y.Label.Text = "Pitch width (m)"
	p.Add(hm)

	if err := p.Save(10.5*vg.Inch, 6.8*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save heatmap: %w", err)
	}
	return nil
}
