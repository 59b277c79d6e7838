package zenith

type HierarchyModule struct{}

func (HierarchyModule) Install(app *App, cmd *Commands) {
	app.UseSystem(
		System(TransformHierarchySystem).
			InStage(PostUpdate).
			RunAlways(),
	)
}

// TransformHierarchySystem propagates world matrices from roots to leaves.
func TransformHierarchySystem(scene *Scene) {
	UpdateTransforms(scene)
}

// UpdateTransforms walks the scene top-down and republishes every object whose
// parent changed since its last snapshot. Parents are always visited before
// their children, so one pass settles any depth. It returns the number of
// objects updated.
func UpdateTransforms(scene *Scene) int {
	updated := 0
	scene.Walk(func(o *GameObject, _ int) bool {
		if o.refresh() {
			updated++
		}
		return true
	})
	return updated
}
