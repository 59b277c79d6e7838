package zenith

import (
	"fmt"
	"reflect"
	"runtime"
)

type systemFn any

type Module interface {
	Install(app *App, cmd *Commands)
}

type App struct {
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
	scene              *Scene

	started bool
	frame   uint64
	quit    bool

	// Command Buffering
	pendingDestroys []GameObjectId
}

// NewApp returns a stateless app with the default stages and an empty scene.
func NewApp() *App {
	return NewAppBuilder().Build()
}

func (app *App) Commands() *Commands {
	return &Commands{app: app}
}

func (app *App) Scene() *Scene {
	return app.scene
}

// Frame is the number of completed frames.
func (app *App) Frame() uint64 {
	return app.frame
}

// Quit stops Run after the current frame.
func (app *App) Quit() {
	app.quit = true
}

func (app *App) UseModules(modules ...Module) *App {
	cmd := app.Commands()
	for _, m := range modules {
		m.Install(app, cmd)
	}
	return app
}

func (app *App) start() {
	if app.started {
		return
	}
	app.started = true
	if app.stateful {
		app.Logger().Infof("running in stateful mode")
		app.state = app.initialState
		app.callSystems(app.state, enter)
	} else {
		app.Logger().Debugf("running in stateless mode")
	}
}

// Run drives frames until Quit is called or the final state is reached.
func (app *App) Run() {
	app.start()
	for !app.step() {
	}
}

// RunFrames drives at most n frames and reports how many ran.
func (app *App) RunFrames(n int) int {
	app.start()
	ran := 0
	for ran < n {
		ran++
		if app.step() {
			break
		}
	}
	return ran
}

// step runs one frame and reports whether the app is done.
func (app *App) step() bool {
	app.callSystems(app.state, execute)
	app.frame++

	if app.stateful {
		if app.stateTransitioning {
			app.stateTransitioning = false
			app.executeChangeState(app.nextState)
		}

		if app.state == app.finalState {
			app.callSystems(app.state, exit)
			return true
		}
	}
	return app.quit
}

func (app *App) callSystems(state State, phase statePhase) {
	for _, stage := range app.stages {
		// On execute, call stateless/always run systems first
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
		app.FlushCommands()
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

// Resource looks up a resource by its pointer type.
func Resource[T any](app *App) (*T, bool) {
	r, ok := app.resources[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return nil, false
	}
	return r.(*T), true
}

var typeOfCommands = reflect.TypeOf(Commands{})

func (app *App) callSystem(system systemFn) {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())

	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		if argType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("System %s takes non-pointer argument %s",
				runtime.FuncForPC(systemValue.Pointer()).Name(), argType))
		}
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
		} else if resource, argIsResource := app.resources[underlyingType]; argIsResource {
			args[i] = reflect.ValueOf(resource)
		} else {
			msg := fmt.Sprintf("Unable to resolve System dependency.\nSystem: %s\nSystem type: %s\nDependency: %s",
				runtime.FuncForPC(systemValue.Pointer()).Name(),
				fmt.Sprint(systemType),
				fmt.Sprint(argType),
			)
			app.Logger().Errorf("%s", msg)
			panic(msg)
		}
	}
	systemValue.Call(args)
}

// FlushCommands applies deferred scene changes queued through Commands.
func (app *App) FlushCommands() {
	if len(app.pendingDestroys) == 0 {
		return
	}

	pending := app.pendingDestroys
	app.pendingDestroys = nil
	for _, id := range pending {
		// Already gone when an ancestor was destroyed earlier in the batch.
		if _, ok := app.scene.Get(id); !ok {
			continue
		}
		if err := app.scene.Destroy(id); err != nil {
			app.Logger().Warnf("destroy %v: %v", id, err)
			continue
		}
		app.Logger().Debugf("flush: destroyed object %v", id)
	}
}
