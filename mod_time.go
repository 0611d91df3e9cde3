package meadow

import (
	"time"
)

// Time advances once per frame. With FixedStep set, Dt is always FixedStep
// and the wall clock is ignored, which keeps headless runs reproducible.
type Time struct {
	Now       time.Time
	Dt        time.Duration
	Total     time.Duration
	Frame     uint64
	FixedStep time.Duration
}

func (t *Time) DtSeconds() float32    { return float32(t.Dt.Seconds()) }
func (t *Time) TotalSeconds() float32 { return float32(t.Total.Seconds()) }

type TimeModule struct {
	FixedStep time.Duration
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Time{
		Now:       time.Now(),
		FixedStep: mod.FixedStep,
	})
	app.UseSystem(
		System(timeSystem).
			InStage(Prelude).
			RunAlways(),
	)
}

func timeSystem(t *Time) {
	now := time.Now()

	switch {
	case t.FixedStep > 0:
		t.Dt = t.FixedStep
	case t.Frame == 0:
		// Now was stamped at install; time spent building the app is not a frame.
		t.Dt = 0
	default:
		t.Dt = now.Sub(t.Now)
	}
	t.Now = now
	t.Total += t.Dt
	t.Frame++
}
