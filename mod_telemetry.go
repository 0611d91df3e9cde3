package meadow

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/stat"

	"github.com/gekko3d/meadow/config"
)

// StepRecord is one row of steps.csv.
type StepRecord struct {
	Frame             uint64  `csv:"frame"`
	TimeS             float32 `csv:"time_s"`
	Total             uint32  `csv:"total"`
	Visible           uint32  `csv:"visible"`
	CulledOrientation uint32  `csv:"culled_orientation"`
	CulledDistance    uint32  `csv:"culled_distance"`
	CulledFrustum     uint32  `csv:"culled_frustum"`
	NonFinite         uint32  `csv:"non_finite"`
	StepUs            int64   `csv:"step_us"`
}

// Summary aggregates a whole run. Written to summary.csv when the app
// reaches Finished.
type Summary struct {
	RunID       string  `csv:"run_id"`
	Backend     string  `csv:"backend"`
	Steps       int     `csv:"steps"`
	Blades      int     `csv:"blades"`
	VisibleMean float64 `csv:"visible_mean"`
	VisibleStd  float64 `csv:"visible_std"`
	StepUsMean  float64 `csv:"step_us_mean"`
	StepUsStd   float64 `csv:"step_us_std"`
	StepUsP95   float64 `csv:"step_us_p95"`
}

// Telemetry collects per-step samples. With an output dir it also streams
// steps.csv and writes the config snapshot and summary next to it.
type Telemetry struct {
	dir   string
	every int
	cfg   *config.Config

	stepsFile     *os.File
	headerWritten bool

	visible []float64
	stepUs  []float64
	summary *Summary
}

func (tel *Telemetry) Dir() string { return tel.dir }

// Summary returns the run summary once the app finished, else nil.
func (tel *Telemetry) Summary() *Summary { return tel.summary }

// Samples is the number of steps recorded so far.
func (tel *Telemetry) Samples() int { return len(tel.visible) }

func (tel *Telemetry) open() error {
	if tel.dir == "" {
		return nil
	}
	if err := os.MkdirAll(tel.dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if tel.cfg != nil {
		if err := tel.cfg.WriteYAML(filepath.Join(tel.dir, "config.yaml")); err != nil {
			return err
		}
	}
	f, err := os.Create(filepath.Join(tel.dir, "steps.csv"))
	if err != nil {
		return fmt.Errorf("creating steps.csv: %w", err)
	}
	tel.stepsFile = f
	return nil
}

func (tel *Telemetry) writeStep(rec StepRecord) error {
	if tel.stepsFile == nil {
		return nil
	}
	records := []StepRecord{rec}

	if !tel.headerWritten {
		if err := gocsv.Marshal(records, tel.stepsFile); err != nil {
			return fmt.Errorf("writing steps: %w", err)
		}
		tel.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, tel.stepsFile); err != nil {
		return fmt.Errorf("writing steps: %w", err)
	}
	return nil
}

func (tel *Telemetry) summarize(runID string, grass *Grass) Summary {
	s := Summary{
		RunID:   runID,
		Backend: grass.Backend,
		Steps:   len(tel.visible),
		Blades:  len(grass.Blades),
	}
	if len(tel.visible) == 0 {
		return s
	}
	s.VisibleMean, s.VisibleStd = stat.MeanStdDev(tel.visible, nil)
	s.StepUsMean, s.StepUsStd = stat.MeanStdDev(tel.stepUs, nil)

	sorted := slices.Clone(tel.stepUs)
	slices.Sort(sorted)
	s.StepUsP95 = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	return s
}

func (tel *Telemetry) writeSummary(s Summary) error {
	if tel.dir == "" {
		return nil
	}
	f, err := os.Create(filepath.Join(tel.dir, "summary.csv"))
	if err != nil {
		return fmt.Errorf("creating summary.csv: %w", err)
	}
	defer f.Close()
	if err := gocsv.Marshal([]Summary{s}, f); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

func (tel *Telemetry) Close() error {
	if tel.stepsFile == nil {
		return nil
	}
	err := tel.stepsFile.Close()
	tel.stepsFile = nil
	return err
}

// TelemetryModule records grass step statistics. It must be installed after
// GrassModule.
type TelemetryModule struct {
	Dir    string
	Every  int // one steps.csv row every N steps, 0 or 1 for all
	Config *config.Config
}

func (mod TelemetryModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Telemetry{
		dir:   mod.Dir,
		every: max(mod.Every, 1),
		cfg:   mod.Config,
	})

	app.UseSystem(
		System(telemetryOpenSystem).
			InStage(Prelude).
			InState(OnEnter(Simulating)),
	)
	app.UseSystem(
		System(telemetryStepSystem).
			InStage(PostUpdate).
			InState(OnExecute(Simulating)),
	)
	app.UseSystem(
		System(telemetrySummarySystem).
			InStage(Finale).
			InState(OnEnter(Finished)),
	)
}

func telemetryOpenSystem(tel *Telemetry, cmd *Commands) error {
	if err := tel.open(); err != nil {
		return err
	}
	if tel.dir != "" {
		cmd.Logger().Infof("telemetry output: %s", tel.dir)
	}
	return nil
}

func telemetryStepSystem(tel *Telemetry, grass *Grass, t *Time) error {
	s := grass.LastStats
	tel.visible = append(tel.visible, float64(s.Visible))
	tel.stepUs = append(tel.stepUs, float64(grass.LastStep.Microseconds()))

	if (grass.Steps-1)%uint64(tel.every) != 0 {
		return nil
	}
	return tel.writeStep(StepRecord{
		Frame:             t.Frame,
		TimeS:             t.TotalSeconds(),
		Total:             s.Total,
		Visible:           s.Visible,
		CulledOrientation: s.CulledOrientation,
		CulledDistance:    s.CulledDistance,
		CulledFrustum:     s.CulledFrustum,
		NonFinite:         s.NonFinite,
		StepUs:            grass.LastStep.Microseconds(),
	})
}

func telemetrySummarySystem(tel *Telemetry, grass *Grass, cmd *Commands) error {
	s := tel.summarize(cmd.RunID(), grass)
	tel.summary = &s
	cmd.Logger().Infof("run summary: %d steps, visible %.1f ± %.1f of %d, step %.0fus (p95 %.0fus)",
		s.Steps, s.VisibleMean, s.VisibleStd, s.Blades, s.StepUsMean, s.StepUsP95)

	if err := tel.writeSummary(s); err != nil {
		return err
	}
	return tel.Close()
}
