package zenith

type Commands struct {
	app *App
}

func (cmd *Commands) ChangeState(newState State) *Commands {
	cmd.app.changeState(newState)
	return cmd
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

// UseSystem schedules fn to run every frame in the Update stage.
func (cmd *Commands) UseSystem(fn systemFn) *Commands {
	cmd.app.UseSystem(System(fn).RunAlways())
	return cmd
}

func (cmd *Commands) Scene() *Scene {
	return cmd.app.scene
}

func (cmd *Commands) Logger() Logger {
	return cmd.app.Logger()
}

// Spawn creates a root object immediately.
func (cmd *Commands) Spawn(name string) *GameObject {
	return cmd.app.scene.NewGameObject(name)
}

// SpawnChild creates an object under parent immediately.
func (cmd *Commands) SpawnChild(parent GameObjectId, name string) (*GameObject, error) {
	obj := cmd.app.scene.NewGameObject(name)
	if err := cmd.app.scene.AddChild(parent, obj.Id()); err != nil {
		_ = cmd.app.scene.Destroy(obj.Id())
		return nil, err
	}
	return obj, nil
}

// Destroy removes the object and its subtree at the end of the current stage.
func (cmd *Commands) Destroy(id GameObjectId) {
	cmd.app.pendingDestroys = append(cmd.app.pendingDestroys, id)
}
