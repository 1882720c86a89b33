package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crystal/internal/discourse"
	"crystal/internal/drs"
)

// appendProcessor treats every input as a statement adding one predicate.
type appendProcessor struct {
	mu     sync.Mutex
	alloc  *drs.Allocator
	seen   []*drs.Box
	err    error
	active int
	peak   int
}

func (p *appendProcessor) Process(_ context.Context, input string, current *drs.Box, emit func(discourse.Event)) (*discourse.Outcome, error) {
	p.mu.Lock()
	p.active++
	p.peak = max(p.peak, p.active)
	p.seen = append(p.seen, current)
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.active--
		p.mu.Unlock()
	}()

	time.Sleep(time.Millisecond)
	if p.err != nil {
		return nil, p.err
	}
	x := p.alloc.New(drs.SingularSort)
	next := drs.Merge(current, drs.New(x).With(drs.NewPredicate(input, x)))
	if emit != nil {
		emit(discourse.Event{Kind: discourse.EventResult, Text: discourse.MsgStatementAdded})
	}
	return &discourse.Outcome{Kind: discourse.OutcomeStatement, Context: next, Text: discourse.MsgStatementAdded}, nil
}

func newProcessor() *appendProcessor {
	return &appendProcessor{alloc: drs.NewAllocator()}
}

func TestNewManager(t *testing.T) {
	mgr := NewManager()
	require.NotNil(t, mgr)
	assert.Equal(t, 0, mgr.Count())
}

func TestNewSession(t *testing.T) {
	s := NewSession("test-session")
	assert.Equal(t, "test-session", s.SessionID)
	assert.True(t, s.Context.Empty())
	assert.NotNil(t, s.History)
	assert.False(t, s.CreatedAt.IsZero())
}

func TestNewSession_AutoGenerateID(t *testing.T) {
	s := NewSession("")
	assert.Len(t, s.SessionID, 36)
}

func TestManager_GetOrCreate(t *testing.T) {
	mgr := NewManager()

	first := mgr.GetOrCreate("test-1")
	again := mgr.GetOrCreate("test-1")
	assert.Same(t, first, again)
	assert.Equal(t, 1, mgr.Count())

	fresh := mgr.GetOrCreate("")
	assert.NotEqual(t, "test-1", fresh.SessionID)
	assert.Equal(t, 2, mgr.Count())
}

func TestManager_Get(t *testing.T) {
	mgr := NewManager()
	_, err := mgr.Get("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found: missing")

	created := mgr.GetOrCreate("present")
	got, err := mgr.Get("present")
	require.NoError(t, err)
	assert.Same(t, created, got)
}

func TestManager_Delete(t *testing.T) {
	mgr := NewManager()
	mgr.GetOrCreate("a")

	require.NoError(t, mgr.Delete("a"))
	assert.Equal(t, 0, mgr.Count())
	assert.Error(t, mgr.Delete("a"))
}

func TestManager_List(t *testing.T) {
	mgr := NewManager()
	mgr.GetOrCreate("b")
	mgr.GetOrCreate("a")
	mgr.GetOrCreate("c")
	assert.Equal(t, []string{"a", "b", "c"}, mgr.List())
}

func TestManager_CleanupExpired(t *testing.T) {
	mgr := NewManager()
	old := mgr.GetOrCreate("old")
	recent := mgr.GetOrCreate("recent")
	old.LastUsed = time.Now().Add(-2 * time.Hour)
	recent.LastUsed = time.Now().Add(-30 * time.Minute)
	mgr.GetOrCreate("now")

	assert.Equal(t, 1, mgr.CleanupExpired(time.Hour))
	assert.Equal(t, []string{"now", "recent"}, mgr.List())
}

func TestSession_SayAccumulatesContext(t *testing.T) {
	s := NewSession("talk")
	p := newProcessor()

	var events []discourse.Event
	out, err := s.Say(context.Background(), p, "man", func(ev discourse.Event) { events = append(events, ev) })
	require.NoError(t, err)
	assert.Equal(t, discourse.OutcomeStatement, out.Kind)
	require.Len(t, events, 1)

	_, err = s.Say(context.Background(), p, "walk", nil)
	require.NoError(t, err)

	require.Len(t, p.seen, 2)
	assert.True(t, p.seen[0].Empty())
	assert.Len(t, p.seen[1].Referents(), 1)
	assert.Len(t, s.GetContext().Referents(), 2)

	history := s.GetHistory()
	require.Len(t, history, 4)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "man", history[0].Content)
	assert.Equal(t, "system", history[1].Role)
	assert.Equal(t, discourse.MsgStatementAdded, history[1].Content)
	assert.Equal(t, discourse.OutcomeStatement, history[1].Outcome)
}

func TestSession_SayKeepsContextOnError(t *testing.T) {
	s := NewSession("talk")
	p := newProcessor()
	_, err := s.Say(context.Background(), p, "man", nil)
	require.NoError(t, err)

	boom := errors.New("prover crashed")
	p.err = boom
	_, err = s.Say(context.Background(), p, "walk", nil)
	require.ErrorIs(t, err, boom)

	assert.Len(t, s.GetContext().Referents(), 1)
	history := s.GetHistory()
	require.Len(t, history, 3)
	assert.Equal(t, "walk", history[2].Content)
	assert.Empty(t, history[2].Outcome)
}

func TestSession_SaySerialisesUtterances(t *testing.T) {
	s := NewSession("busy")
	p := newProcessor()

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, _ = s.Say(context.Background(), p, "thing", nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, p.peak)
	assert.Len(t, s.GetContext().Referents(), n)
	assert.Len(t, s.GetHistory(), 2*n)
}

func TestSession_GetContextIsACopy(t *testing.T) {
	s := NewSession("copy")
	_, err := s.Say(context.Background(), newProcessor(), "man", nil)
	require.NoError(t, err)

	snapshot := s.GetContext()
	x := drs.NewAllocator().New(drs.SingularSort)
	snapshot.AddReferent(x)
	assert.False(t, s.GetContext().HasReferent(x))
}

func TestSession_Reset(t *testing.T) {
	s := NewSession("reset")
	_, err := s.Say(context.Background(), newProcessor(), "man", nil)
	require.NoError(t, err)

	s.Reset()
	assert.True(t, s.GetContext().Empty())
	assert.Empty(t, s.GetHistory())
}

func TestManager_ConcurrentAccess(t *testing.T) {
	mgr := NewManager()

	const numGoroutines = 100
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			mgr.GetOrCreate("concurrent-test")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, mgr.Count())
}
