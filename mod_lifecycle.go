package meadow

// FrameBudget ends the run after Frames steps.
type FrameBudget struct {
	Frames uint64
	spent  bool
}

// FrameBudgetModule stops the app after a fixed number of frames. Stateful
// apps move to Final so its OnEnter systems can flush output; stateless apps
// exit. Zero frames means no budget.
type FrameBudgetModule struct {
	Frames uint64
	Final  State
}

func (mod FrameBudgetModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&FrameBudget{Frames: mod.Frames})

	final := mod.Final
	app.UseSystem(
		System(func(budget *FrameBudget, t *Time, cmd *Commands) {
			if budget.spent || budget.Frames == 0 || t.Frame < budget.Frames {
				return
			}
			budget.spent = true
			cmd.Logger().Debugf("frame budget of %d spent", budget.Frames)
			if app.stateful {
				cmd.ChangeState(final)
			} else {
				cmd.Exit()
			}
		}).
			InStage(Finale).
			RunAlways(),
	)
}
