package ceremony

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
)

// startStore runs a store's apply loop for the duration of the test.
func startStore(t *testing.T, initial State, opts ...StoreOption) *Store {
	t.Helper()

	s := NewStore(initial, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return s
}

func answerPtr(a Answer) *Answer {
	return &a
}

// decodedFlips builds n answered-ready flips with throwaway content.
func decodedFlips(n int) []Flip {
	flips := make([]Flip, n)
	for i := range flips {
		flips[i] = Flip{
			Hash:   string(rune('a' + i)),
			Ready:  true,
			Pics:   [][]byte{{byte(i)}},
			Orders: [][]int{{0, 1}},
		}
	}
	return flips
}

// sessionState is a mid-session state: flips loaded, nothing answered yet.
func sessionState(epoch uint32, n int) State {
	s := NewState(epoch)
	s.Loading = false
	s.Flips = decodedFlips(n)
	hashes := make([]FlipRequest, n)
	for i, f := range s.Flips {
		hashes[i] = FlipRequest{Hash: f.Hash, Ready: true}
	}
	s.Hashes = hashes
	return s
}

type fakePhases struct {
	mu      sync.Mutex
	current Phase
	ch      chan Phase
}

func newFakePhases(p Phase) *fakePhases {
	return &fakePhases{current: p, ch: make(chan Phase, 8)}
}

func (f *fakePhases) Current() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakePhases) Changes(ctx context.Context) <-chan Phase {
	return f.ch
}

// advance updates the current phase and delivers the change.
func (f *fakePhases) advance(p Phase) {
	f.mu.Lock()
	f.current = p
	f.mu.Unlock()
	f.ch <- p
}

type fakeTicks struct {
	ch chan int
}

func newFakeTicks() *fakeTicks {
	return &fakeTicks{ch: make(chan int)}
}

func (f *fakeTicks) Ticks(ctx context.Context) <-chan int {
	return f.ch
}

var errSubmitRefused = errors.New("node refused submission")

type fakeSubmitter struct {
	mu       sync.Mutex
	short    [][]AnswerRecord
	long     [][]AnswerRecord
	failures int    // fail this many leading calls
	onSubmit func() // runs during the call, before the outcome
}

func (f *fakeSubmitter) SubmitShortAnswers(ctx context.Context, answers []AnswerRecord, _, _ int) error {
	return f.call(&f.short, answers)
}

func (f *fakeSubmitter) SubmitLongAnswers(ctx context.Context, answers []AnswerRecord, _, _ int) error {
	return f.call(&f.long, answers)
}

func (f *fakeSubmitter) call(dst *[][]AnswerRecord, answers []AnswerRecord) error {
	f.mu.Lock()
	hook := f.onSubmit
	fail := f.failures > 0
	if fail {
		f.failures--
	} else {
		*dst = append(*dst, slices.Clone(answers))
	}
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if fail {
		return errSubmitRefused
	}
	return nil
}

func (f *fakeSubmitter) shortCalls() [][]AnswerRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.short)
}

func (f *fakeSubmitter) longCalls() [][]AnswerRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.long)
}

var errPersistRefused = errors.New("persistence refused write")

type fakePersistence struct {
	mu         sync.Mutex
	snapshot   State
	short      [][]AnswerRecord
	long       [][]AnswerRecord
	resets     []uint32
	failSets   int
	failResets int
}

func (f *fakePersistence) GetValidation(ctx context.Context) (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot, nil
}

func (f *fakePersistence) ResetValidation(ctx context.Context, epoch uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failResets > 0 {
		f.failResets--
		return errPersistRefused
	}
	f.resets = append(f.resets, epoch)
	return nil
}

func (f *fakePersistence) SetShortAnswers(ctx context.Context, answers []AnswerRecord, epoch uint32) error {
	return f.set(&f.short, answers)
}

func (f *fakePersistence) SetLongAnswers(ctx context.Context, answers []AnswerRecord, epoch uint32) error {
	return f.set(&f.long, answers)
}

func (f *fakePersistence) set(dst *[][]AnswerRecord, answers []AnswerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSets > 0 {
		f.failSets--
		return errPersistRefused
	}
	*dst = append(*dst, slices.Clone(answers))
	return nil
}

func (f *fakePersistence) shortWrites() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.short)
}

func (f *fakePersistence) longWrites() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.long)
}

func (f *fakePersistence) resetEpochs() []uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.resets)
}

type journalEntry struct {
	token   string
	kind    SessionKind
	epoch   uint32
	answers []AnswerRecord
}

type fakeJournal struct {
	mu      sync.Mutex
	entries []journalEntry
	err     error
}

func (f *fakeJournal) RecordAttempt(ctx context.Context, token string, kind SessionKind, epoch uint32, answers []AnswerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, journalEntry{
		token:   token,
		kind:    kind,
		epoch:   epoch,
		answers: slices.Clone(answers),
	})
	return nil
}

func (f *fakeJournal) recorded() []journalEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.entries)
}

type archiveCall struct {
	epoch uint32
	flips []Flip
}

type fakeArchiver struct {
	mu    sync.Mutex
	calls []archiveCall
	err   error
}

func (f *fakeArchiver) ArchiveFlips(ctx context.Context, epoch uint32, flips []Flip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, archiveCall{epoch: epoch, flips: slices.Clone(flips)})
	return f.err
}

func (f *fakeArchiver) archived() []archiveCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}
