package meadow

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockResource1 struct {
	name string
}
type MockResource2 struct {
	name string
}

func NewMockResource1(name string) *MockResource1 {
	return &MockResource1{name: name}
}
func NewMockResource2(name string) *MockResource2 {
	return &MockResource2{name: name}
}

func TestApp_changeState(t *testing.T) {
	app := NewAppBuilder().UseStates(1, 2).Build()
	app.state = 1

	app.changeState(2)
	if app.nextState != State(2) {
		t.Errorf("The nextState should be set correctly.")
	}
	if !app.stateTransitioning {
		t.Errorf("The stateTransitioning flag should be true.")
	}

	app.executeChangeState(2)
	if app.state != State(2) {
		t.Errorf("The app state should change correctly.")
	}
}

func TestApp_addResources(t *testing.T) {
	app := &App{
		resources: make(map[reflect.Type]any),
	}

	resource1 := NewMockResource1("Resource1")
	app.addResources(resource1)
	assert.Contains(t, app.resources, reflect.TypeOf(resource1).Elem(), "Resource1 should be in resources map.")

	require.PanicsWithValue(t, fmt.Sprintf("%s is already in resources", reflect.TypeOf(resource1)), func() {
		app.addResources(resource1)
	})

	resource2 := NewMockResource2("Resource2")
	app.addResources(resource2)
	assert.Contains(t, app.resources, reflect.TypeOf(resource2).Elem(), "Resource2 should be in resources map.")

	assert.Same(t, resource1, Resource[MockResource1](app))
	assert.Nil(t, Resource[Time](app))
}

func TestApp_SystemInjection(t *testing.T) {
	app := NewAppBuilder().Build()
	res := NewMockResource1("before")
	app.addResources(res)

	var gotCmd *Commands
	app.UseSystem(System(func(r *MockResource1, cmd *Commands) {
		r.name = "after"
		gotCmd = cmd
	}))
	app.UseSystem(System(func(cmd *Commands) { cmd.Exit() }).InStage(Finale))

	require.NoError(t, app.Run())
	assert.Equal(t, "after", res.name)
	require.NotNil(t, gotCmd)
	assert.Equal(t, uint64(1), app.Frames())
}

func TestApp_UnresolvedDependencyPanics(t *testing.T) {
	app := NewAppBuilder().Build()
	app.UseSystem(System(func(r *MockResource2) {}))

	assert.PanicsWithValue(t,
		unresolved(app.systemsStateless[Update.Name][0], reflect.TypeOf(&MockResource2{})),
		func() { app.Step() })
}

func TestApp_StatefulLifecycle(t *testing.T) {
	app := NewAppBuilder().UseStates(Simulating, Finished).Build()

	var calls []string
	record := func(name string) func() {
		return func() { calls = append(calls, name) }
	}
	app.UseSystem(System(record("enter sim")).InState(OnEnter(Simulating)))
	app.UseSystem(System(record("exec sim")).InState(OnExecute(Simulating)))
	app.UseSystem(System(record("exit sim")).InState(OnExit(Simulating)))
	app.UseSystem(System(record("enter done")).InState(OnEnter(Finished)))
	app.UseSystem(System(record("exit done")).InState(OnExit(Finished)))
	app.UseSystem(System(record("always")).InStage(Prelude).RunAlways())

	steps := 0
	app.UseSystem(System(func(cmd *Commands) {
		steps++
		if steps == 2 {
			cmd.ChangeState(Finished)
		}
	}).InStage(Finale).InState(OnExecute(Simulating)))

	require.NoError(t, app.Run())
	assert.Equal(t, []string{
		"enter sim",
		"always", "exec sim",
		"always", "exec sim",
		"exit sim", "enter done", "exit done",
	}, calls)
	assert.Equal(t, Finished, app.State())
	assert.False(t, app.Step(), "finished app must not step again")
}

func TestApp_SystemErrorStopsRun(t *testing.T) {
	app := NewAppBuilder().Build()
	boom := errors.New("boom")

	ran := false
	app.UseSystem(System(func() error { return boom }).InStage(PreUpdate))
	app.UseSystem(System(func() { ran = true }).InStage(Update))

	err := app.Run()
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, app.Err(), boom)
	assert.False(t, ran, "systems after a failure are skipped")
}

func TestApp_UseStage(t *testing.T) {
	app := NewAppBuilder().Build()
	custom := Stage{Name: "Custom"}
	app.UseStage(custom, AfterStage(Update))

	idx := func(s Stage) int {
		for i, st := range app.stages {
			if st.Name == s.Name {
				return i
			}
		}
		return -1
	}
	assert.Equal(t, idx(Update)+1, idx(custom))
	assert.Panics(t, func() { app.UseStage(Stage{Name: "X"}, BeforeStage(Stage{Name: "Missing"})) })
	assert.Panics(t, func() { app.UseSystem(System(func() {}).InStage(Stage{Name: "Missing"})) })
	assert.Panics(t, func() { app.UseSystem(System(func() {}).InState(OnEnter(Simulating))) },
		"stateful systems need a stateful app")
	assert.Panics(t, func() { System(42) })
}

func TestApp_LoggerFallback(t *testing.T) {
	var nilApp *App
	assert.NotNil(t, nilApp.Logger())
	assert.NotNil(t, NewAppBuilder().Build().Logger())
	assert.Nil(t, NewAppBuilder().Build().slogger())
}
