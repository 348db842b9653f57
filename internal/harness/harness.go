package harness

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/perales/rite/internal/agent"
	"github.com/perales/rite/internal/ceremony"
	"github.com/perales/rite/internal/testutil"
)

// waitTimeout bounds the startup gate and every wait step. Package variable
// so tests exercising timeout handling can shorten it.
var waitTimeout = 2 * time.Second

const (
	waitInterval = 2 * time.Millisecond

	// refillPace replaces the production refetch interval so withheld-flip
	// scenarios converge quickly. It still has to dwarf the store's apply
	// latency: a round that runs before the previous round's event applied
	// would re-request and re-dispatch, and the trace is compared byte for
	// byte.
	refillPace = 25 * time.Millisecond
)

// runner holds one scenario's assembly: the agent under test plus the
// scripted sources and recording ports it is wired to.
type runner struct {
	agent   *agent.Agent
	phases  *testutil.ScriptedPhases
	ticks   *testutil.ScriptedTicks
	submit  *testutil.MemorySubmitter
	persist *testutil.MemoryPersistence
	gateway *testutil.MemoryFlipSource
	archive *testutil.MemoryArchiver
}

// Run executes a scenario against a fresh assembly and returns the result.
//
// Execution flow:
//  1. Seed in-memory persistence from the scenario's epoch and flags.
//  2. Install the scripted gateway's hash list and content.
//  3. Start the full agent: store, trigger, epoch watcher, fetcher.
//  4. Execute the steps in order, tracing every applied event.
//  5. Evaluate the assertions against the trace and the final state.
//
// A step failure stops execution; the result then carries the partial trace
// and the failure message. Run itself only errors when the assembly cannot
// be built or started.
func Run(scenario *Scenario) (*Result, error) {
	seed := ceremony.NewState(scenario.Epoch)
	seed.ShortSubmitted = scenario.ShortSubmitted
	seed.LongSubmitted = scenario.LongSubmitted

	r := &runner{
		phases:  testutil.NewScriptedPhases(ceremony.Phase{Epoch: scenario.Epoch, Period: ceremony.PeriodNone}),
		ticks:   testutil.NewScriptedTicks(),
		submit:  testutil.NewMemorySubmitter(),
		persist: testutil.NewMemoryPersistence(seed),
		gateway: testutil.NewMemoryFlipSource(),
		archive: testutil.NewMemoryArchiver(),
	}

	reqs := make([]ceremony.FlipRequest, 0, len(scenario.Flips))
	for _, stub := range scenario.Flips {
		ready := stub.Ready == nil || *stub.Ready
		reqs = append(reqs, ceremony.FlipRequest{Hash: stub.Hash, Ready: ready})
		if stub.Hex != "" {
			r.gateway.SetContent(stub.Hash, stub.Hex)
		}
	}
	r.gateway.SetHashes(reqs...)

	var mu sync.Mutex
	var trace []TraceEvent
	observe := func(ap ceremony.Applied) {
		mu.Lock()
		defer mu.Unlock()
		trace = append(trace, newTraceEvent(ap))
	}

	a, err := agent.New(agent.Options{
		Phases:          r.phases,
		Ticks:           r.ticks,
		Submitter:       r.submit,
		Persistence:     r.persist,
		Flips:           r.gateway,
		Archiver:        r.archive,
		RefetchInterval: refillPace,
		StoreOptions:    []ceremony.StoreOption{ceremony.WithObserver(observe)},
		TriggerOptions: []ceremony.TriggerOption{
			ceremony.WithRetryBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("assemble agent: %w", err)
	}
	r.agent = a

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = a.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	if err := r.awaitStart(); err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := r.execStep(step); err != nil {
			result.AddError(fmt.Sprintf("steps[%d]: %v", i, err))
			break
		}
	}

	mu.Lock()
	result.Trace = append(result.Trace, trace...)
	mu.Unlock()
	result.Final = r.collectFinal()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// awaitStart holds scripted input until the snapshot is restored and every
// producer is subscribed. A tick broadcast before the trigger listens would
// simply vanish.
func (r *runner) awaitStart() error {
	err := waitFor(func() bool {
		return r.agent.State().Loading &&
			r.phases.Subscribers() >= 2 &&
			r.ticks.Subscribers() >= 1
	})
	if err != nil {
		return fmt.Errorf("assembly did not start: %w", err)
	}
	return nil
}

func (r *runner) execStep(step Step) error {
	switch {
	case step.Phase != nil:
		period, err := parsePeriod(step.Phase.Period)
		if err != nil {
			return err
		}
		r.phases.Advance(ceremony.Phase{Epoch: step.Phase.Epoch, Period: period})

	case step.Tick != nil:
		r.ticks.Tick(*step.Tick)

	case step.Answer != "":
		opt, err := parseAnswer(step.Answer)
		if err != nil {
			return err
		}
		return r.dispatch(ceremony.FlipAnswered{Option: opt})

	case step.Report:
		return r.dispatch(ceremony.FlipReported{})

	case step.Next:
		return r.dispatch(ceremony.NextFlip{})

	case step.Prev:
		return r.dispatch(ceremony.PrevFlip{})

	case step.Pick != nil:
		return r.dispatch(ceremony.PickFlip{Index: *step.Pick})

	case step.Serve != nil:
		r.gateway.SetContent(step.Serve.Hash, step.Serve.Hex)

	case step.Wait != "":
		if err := waitFor(r.waitCond(step.Wait)); err != nil {
			return fmt.Errorf("wait %q: %w", step.Wait, err)
		}

	case step.Settle > 0:
		time.Sleep(time.Duration(step.Settle) * time.Millisecond)

	default:
		return fmt.Errorf("step carries no directive")
	}
	return nil
}

func (r *runner) dispatch(ev ceremony.Event) error {
	if !r.agent.Dispatch(ev) {
		return fmt.Errorf("dispatch %s refused: store not running", ceremony.Kind(ev))
	}
	return nil
}

// waitCond binds a wait condition to this run's assembly. The name was
// validated at load time; an unknown one here is a programming error.
func (r *runner) waitCond(name string) func() bool {
	switch name {
	case waitSessionLoaded:
		return func() bool {
			st := r.agent.State()
			return !st.Loading && len(st.Flips) > 0
		}
	case waitSessionDecoded:
		return func() bool {
			st := r.agent.State()
			if st.Loading || len(st.Flips) == 0 {
				return false
			}
			for _, flip := range st.Flips {
				if !flip.Decoded() {
					return false
				}
			}
			return true
		}
	case waitCanSubmit:
		return func() bool { return r.agent.State().CanSubmit }
	case waitShortSubmitted:
		return func() bool { return r.agent.State().ShortSubmitted }
	case waitLongSubmitted:
		return func() bool { return r.agent.State().LongSubmitted }
	}
	if rest, ok := strings.CutPrefix(name, waitEpochPrefix); ok {
		epoch, _ := strconv.ParseUint(rest, 10, 32)
		return func() bool { return r.agent.State().Epoch == uint32(epoch) }
	}
	if rest, ok := strings.CutPrefix(name, waitArchivesPrefix); ok {
		n, _ := strconv.ParseUint(rest, 10, 32)
		return func() bool { return len(r.archive.Archives()) >= int(n) }
	}
	panic(fmt.Sprintf("harness: unvalidated wait condition %q", name))
}

func (r *runner) collectFinal() FinalState {
	st := r.agent.State()
	return FinalState{
		Epoch:            st.Epoch,
		Loading:          st.Loading,
		CanSubmit:        st.CanSubmit,
		ShortSubmitted:   st.ShortSubmitted,
		LongSubmitted:    st.LongSubmitted,
		Flips:            len(st.Flips),
		Current:          st.Current,
		LastError:        st.LastError,
		ShortSubmissions: len(r.submit.ShortPayloads()),
		LongSubmissions:  len(r.submit.LongPayloads()),
		Resets:           r.persist.Resets(),
		Archives:         len(r.archive.Archives()),
	}
}

// waitFor polls cond until it holds or waitTimeout passes.
func waitFor(cond func() bool) error {
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return nil
		}
		time.Sleep(waitInterval)
	}
	return fmt.Errorf("condition not met within %s", waitTimeout)
}
