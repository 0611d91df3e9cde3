package meadow

import (
	"fmt"
	"reflect"
	"runtime"

	"github.com/google/uuid"
)

type systemFn any

// Module wires resources and systems into an App while it is being built.
type Module interface {
	Install(app *App, cmd *Commands)
}

type App struct {
	runID              uuid.UUID
	stateful           bool
	stateTransitioning bool
	initialState       State
	finalState         State
	nextState          State
	state              State
	stages             []Stage
	systems            map[string]map[State]map[statePhase][]systemFn
	systemsStateless   map[string][]systemFn
	resources          map[reflect.Type]any

	started  bool
	finished bool
	exiting  bool
	frames   uint64
	err      error
}

func (app *App) Commands() *Commands {
	return &Commands{
		app: app,
	}
}

// RunID identifies this run in logs and telemetry output.
func (app *App) RunID() uuid.UUID { return app.runID }

func (app *App) State() State { return app.state }

// Frames is the number of completed Step calls.
func (app *App) Frames() uint64 { return app.frames }

// Err returns the first error a system reported.
func (app *App) Err() error { return app.err }

// Run steps the app until it reaches its final state, a system asks it to
// exit, or a system fails.
func (app *App) Run() error {
	for app.Step() {
	}
	return app.err
}

func (app *App) start() {
	app.started = true
	if app.stateful {
		app.Logger().Infof("run %s: stateful mode, state %d", app.runID, app.initialState)
		app.state = app.initialState
		app.callSystems(app.state, enter)
	} else {
		app.Logger().Infof("run %s: stateless mode", app.runID)
	}
}

// Step runs one frame. It returns false once the app has finished.
func (app *App) Step() bool {
	if !app.started {
		app.start()
	}
	if app.finished {
		return false
	}

	app.callSystems(app.state, execute)
	app.frames++

	if app.stateful {
		if app.stateTransitioning {
			app.stateTransitioning = false
			app.executeChangeState(app.nextState)
		}

		if app.state == app.finalState {
			app.callSystems(app.state, exit)
			app.finished = true
		}
	}
	if app.exiting || app.err != nil {
		app.finished = true
	}
	return !app.finished
}

func (app *App) callSystems(state State, phase statePhase) {
	for _, stage := range app.stages {
		// stateless systems run first on execute
		if execute == phase {
			for _, system := range app.systemsStateless[stage.Name] {
				app.callSystem(system)
			}
		}

		if app.stateful {
			for _, system := range app.systems[stage.Name][state][phase] {
				app.callSystem(system)
			}
		}
	}
}

func (app *App) changeState(newState State) {
	app.nextState = newState
	app.stateTransitioning = true
}

func (app *App) executeChangeState(newState State) {
	app.callSystems(app.state, exit)
	app.state = newState
	app.callSystems(app.state, enter)
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}

		app.resources[resourceType.Elem()] = resource
	}
	return app
}

// Resource returns the resource of type T, or nil when none was added.
func Resource[T any](app *App) *T {
	r, ok := app.resources[reflect.TypeFor[T]()]
	if !ok {
		return nil
	}
	return r.(*T)
}

// callSystem runs one system. Once a system has failed the rest of the
// frame is skipped.
func (app *App) callSystem(system systemFn) {
	if app.err != nil {
		return
	}
	if err := app.callSystemInternal(system); err != nil {
		app.err = fmt.Errorf("%s: %w", systemName(system), err)
		app.Logger().Errorf("%v", app.err)
	}
}

var (
	typeOfCommands = reflect.TypeOf(Commands{})
	typeOfError    = reflect.TypeOf((*error)(nil)).Elem()
)

func (app *App) callSystemInternal(system systemFn) error {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())

	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		if argType.Kind() != reflect.Pointer {
			panic(unresolved(system, argType))
		}
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
		} else if resource, argIsResource := app.resources[underlyingType]; argIsResource {
			args[i] = reflect.ValueOf(resource)
		} else {
			panic(unresolved(system, argType))
		}
	}

	out := systemValue.Call(args)
	if systemType.NumOut() == 1 && systemType.Out(0) == typeOfError && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}

func systemName(system systemFn) string {
	return runtime.FuncForPC(reflect.ValueOf(system).Pointer()).Name()
}

func unresolved(system systemFn, argType reflect.Type) string {
	return fmt.Sprintf("Unable to resolve System dependency.\nSystem: %s\nSystem type: %s\nDependency: %s",
		systemName(system),
		reflect.TypeOf(system),
		argType,
	)
}
