package zenith

type LifecycleModule struct{}

func (mod LifecycleModule) Install(app *App, cmd *Commands) {
	app.UseSystem(
		System(lifetimeSystem).
			InStage(PostUpdate).
			RunAlways(),
	)
}

// lifetimeSystem counts down every LifetimeComponent and queues expired
// objects for destruction.
func lifetimeSystem(time *Time, scene *Scene, cmd *Commands) {
	dt := time.DeltaSeconds()
	if dt <= 0 {
		return
	}
	logger := Scoped(cmd.Logger(), "lifecycle")
	scene.Walk(func(o *GameObject, _ int) bool {
		lt := o.Lifetime()
		if lt == nil {
			return true
		}
		lt.TimeLeft -= dt
		if lt.TimeLeft <= 0 {
			logger.Debugf("marking %v (%s) for removal", o.Id(), o.Name())
			cmd.Destroy(o.Id())
			// The subtree goes with it.
			return false
		}
		return true
	})
}
