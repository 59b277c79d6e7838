package zenith

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeModuleFixedStep(t *testing.T) {
	app := NewAppBuilder().UseModule(TimeModule{FixedStep: 250 * time.Millisecond}).Build()
	clock, ok := Resource[Time](app)
	require.True(t, ok)
	start := clock.Time

	app.RunFrames(4)
	assert.Equal(t, 250*time.Millisecond, clock.Dt)
	assert.Equal(t, float32(0.25), clock.DeltaSeconds())
	assert.Equal(t, time.Second, clock.Time.Sub(start))
}

func TestLifecycleDestroysExpiredObjects(t *testing.T) {
	app := NewAppBuilder().UseModule(
		TimeModule{FixedStep: 100 * time.Millisecond},
		LifecycleModule{},
	).Build()
	scene := app.Scene()

	spark := scene.NewGameObject("spark")
	spark.AddComponent(&LifetimeComponent{TimeLeft: 0.25})
	trail, err := app.Commands().SpawnChild(spark.Id(), "trail")
	require.NoError(t, err)
	rock := scene.NewGameObject("rock")

	app.RunFrames(2)
	_, ok := scene.Get(spark.Id())
	assert.True(t, ok)
	assert.InDelta(t, 0.05, spark.Lifetime().TimeLeft, 1e-5)

	app.RunFrames(1)
	_, ok = scene.Get(spark.Id())
	assert.False(t, ok)
	assert.True(t, trail.IsDestroyed())
	_, ok = scene.Get(rock.Id())
	assert.True(t, ok)
	assert.Equal(t, 1, scene.Len())
}
