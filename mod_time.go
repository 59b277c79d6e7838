package zenith

import (
	"time"
)

type Time struct {
	Time time.Time
	Dt   time.Duration

	// Non-zero makes every frame advance by exactly this much.
	FixedStep time.Duration
}

// DeltaSeconds is Dt in seconds.
func (t *Time) DeltaSeconds() float32 {
	return float32(t.Dt.Seconds())
}

type TimeModule struct {
	FixedStep time.Duration
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Time{
		Time:      time.Now(),
		FixedStep: mod.FixedStep,
	})
	app.UseSystem(
		System(timeSystem).
			InStage(Prelude).
			RunAlways(),
	)
}

func timeSystem(timeResource *Time) {
	if timeResource.FixedStep > 0 {
		timeResource.Dt = timeResource.FixedStep
		timeResource.Time = timeResource.Time.Add(timeResource.FixedStep)
		return
	}

	now := time.Now()
	timeResource.Dt = now.Sub(timeResource.Time)
	timeResource.Time = now
}
