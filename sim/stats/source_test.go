package stats

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bambielli/simhelpers/sim"
	"github.com/bambielli/simhelpers/sim/series"
)

func TestSource_TwoEntitiesAtTimeZero_ServedBackToBack(t *testing.T) {
	// GIVEN one resource of capacity 1 with a constant service time of 5
	// AND two entities of priority 1 arriving at time 0
	env := sim.NewEnvironment()
	reg := NewRegistry(env)
	teller := newTestResource(t, env, "Teller", 1, Constant(5))
	src := constantSource(t, reg, "Customer", nil, 0, 0, 2, serveAt(teller))

	// WHEN the simulation runs to completion
	src.Start()
	runAll(t, env, 0)

	// THEN A is served over [0,5] and B over [5,10]
	entities, err := reg.Entities()
	require.NoError(t, err)
	require.Len(t, entities, 2)
	a, _ := entities[0].Visit("Teller")
	b, _ := entities[1].Visit("Teller")
	assert.Equal(t, VisitRecord{Arrivals: []float64{0}, Starts: []float64{0}, Finishes: []float64{5}}, a)
	assert.Equal(t, VisitRecord{Arrivals: []float64{0}, Starts: []float64{5}, Finishes: []float64{10}}, b)

	waiting, err := reg.WaitingTimes(Query{Resource: teller})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 5}, waiting)

	processing, err := reg.ProcessingTimes(Query{Resource: teller})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 5}, processing)

	total, err := reg.TotalTimes(Query{})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 10}, total)
}

func TestSource_StampsIdentityAndCreationTime(t *testing.T) {
	// GIVEN a source whose first entity arrives at 2 and the rest every 3
	env := sim.NewEnvironment()
	reg := NewRegistry(env)
	src := constantSource(t, reg, "Job", Attributes{"size": "large"}, 2, 3, 3, func(p *sim.Process, e *Entity) error {
		return nil
	})

	// WHEN it runs
	src.Start()
	runAll(t, env, 0)

	// THEN names are sequential, creation times follow the arrivals and type is the kind
	entities, err := reg.Entities()
	require.NoError(t, err)
	require.Len(t, entities, 3)
	wantCreated := []float64{2, 5, 8}
	for i, e := range entities {
		assert.Equal(t, []string{"Job 1", "Job 2", "Job 3"}[i], e.Name)
		created, ok := e.CreationTime()
		assert.True(t, ok)
		assert.Equal(t, wantCreated[i], created)
		typ, _ := e.Attribute(AttrType)
		assert.Equal(t, "Job", typ)
		size, _ := e.Attribute("size")
		assert.Equal(t, "large", size)
	}
	assert.Equal(t, 4, src.BuildCount())
}

func TestSource_WithoutFirstCreation_DrawsFirstDelay(t *testing.T) {
	env := sim.NewEnvironment()
	reg := NewRegistry(env)
	draws := 0
	src, err := NewSource(reg, SourceConfig{
		Limit: 2,
		Interarrival: func() float64 {
			draws++
			return 4
		},
		Build: func() (*Entity, error) {
			return NewEntity(reg, "Part", nil, func(*sim.Process, *Entity) error { return nil })
		},
	})
	require.NoError(t, err)

	src.Start()
	runAll(t, env, 0)

	entities, err := reg.Entities()
	require.NoError(t, err)
	require.Len(t, entities, 2)
	created, _ := entities[0].CreationTime()
	assert.Equal(t, 4.0, created)
	assert.Equal(t, 2, draws)
}

func TestSource_Unlimited_KeepsGeneratingUntilHorizon(t *testing.T) {
	// GIVEN a source without a limit emitting every 1
	env := sim.NewEnvironment()
	reg := NewRegistry(env)
	src := constantSource(t, reg, "Customer", nil, 0, 1, 0, func(*sim.Process, *Entity) error { return nil })

	// WHEN the run stops at 10
	src.Start()
	runAll(t, env, 10)

	// THEN arrivals 0..9 were created and disposed
	entities, err := reg.Entities()
	require.NoError(t, err)
	assert.Len(t, entities, 10)
	assert.Equal(t, 10.0, env.Now())
}

func TestNewSource_MissingBehaviour_IsNotImplemented(t *testing.T) {
	reg := NewRegistry(sim.NewEnvironment())

	_, err := NewSource(reg, SourceConfig{Build: func() (*Entity, error) { return nil, nil }})
	assert.ErrorIs(t, err, ErrNotImplemented)

	_, err = NewSource(reg, SourceConfig{Interarrival: func() float64 { return 1 }})
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestSource_BuildFailure_StopsRun(t *testing.T) {
	env := sim.NewEnvironment()
	reg := NewRegistry(env)
	boom := errors.New("boom")
	src, err := NewSource(reg, SourceConfig{
		Interarrival: func() float64 { return 1 },
		Build:        func() (*Entity, error) { return nil, boom },
	})
	require.NoError(t, err)

	src.Start()
	err = env.Run(0)
	t.Cleanup(env.Close)

	assert.ErrorIs(t, err, boom)
}

func TestSource_SharedRun_KeepsEntitiesOfBothSources(t *testing.T) {
	// GIVEN two sources feeding the same run
	env := sim.NewEnvironment()
	reg := NewRegistry(env)
	noop := func(*sim.Process, *Entity) error { return nil }
	regular := constantSource(t, reg, "Customer", nil, 0, 1, 3, noop)
	vip := constantSource(t, reg, "VIP", Attributes{AttrPriority: 0}, 0, 2, 2, noop)

	// WHEN both start at time 0
	regular.Start()
	vip.Start()
	runAll(t, env, 0)

	// THEN the second Begin did not discard the first source's entities
	entities, err := reg.Entities()
	require.NoError(t, err)
	assert.Len(t, entities, 5)

	vips, err := reg.TotalTimes(Query{Attributes: Attributes{AttrType: "VIP"}})
	require.NoError(t, err)
	assert.Len(t, vips, 2)
}

func TestSource_ObserverSeesEveryResourceEvent(t *testing.T) {
	env := sim.NewEnvironment()
	reg := NewRegistry(env)
	obs := &fakeObserver{}
	reg.SetObserver(obs)
	machine := newTestResource(t, env, "Machine", 1, Constant(2))
	src := constantSource(t, reg, "Part", nil, 0, 0, 2, serveAt(machine))

	src.Start()
	runAll(t, env, 0)

	kinds := make([]series.Kind, 0, len(obs.events))
	for _, ev := range obs.events {
		kinds = append(kinds, ev.kind)
	}
	assert.Equal(t, []series.Kind{
		series.KindRequest, series.KindRequest, series.KindStart,
		series.KindRelease, series.KindStart, series.KindRelease,
	}, kinds)
	assert.Equal(t, []float64{2, 4}, obs.disposals)
}
