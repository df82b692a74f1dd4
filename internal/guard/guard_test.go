package guard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvbuilder/internal/resume"
	"cvbuilder/internal/store"
)

func ptr[T any](v T) *T { return &v }

func seed(t *testing.T, s store.Store, id string, owner uint) *resume.Document {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	doc := &resume.Document{
		ID:         id,
		OwnerID:    owner,
		Title:      "My CV",
		TemplateID: resume.DefaultTemplateID,
		Content:    resume.Empty(),
		Version:    resume.InitialVersion,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, s.Create(context.Background(), doc))
	return doc
}

func summary(text string) *resume.Content {
	c := resume.Empty()
	c.Summary.Text = text
	return &c
}

func TestVersionCountsEveryAcceptedWrite(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	seed(t, s, "cv", 1)
	g := New(s)

	version := resume.InitialVersion
	for i := 0; i < 10; i++ {
		var expected *int64
		if i%2 == 0 {
			expected = ptr(version)
		}
		res, err := g.TryApply(ctx, 1, "cv", expected, Patch{Content: summary("edit")})
		require.NoError(t, err)
		require.Equal(t, Applied, res.Outcome)
		require.Equal(t, version+1, res.Document.Version)
		version = res.Document.Version
	}

	got, err := s.Get(ctx, 1, "cv")
	require.NoError(t, err)
	require.Equal(t, resume.InitialVersion+10, got.Version)
}

func TestStaleVersionConflictsWithoutWriting(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	seed(t, s, "cv", 1)
	g := New(s)

	_, err := g.TryApply(ctx, 1, "cv", nil, Patch{Title: ptr("first")})
	require.NoError(t, err)
	before, err := s.Get(ctx, 1, "cv")
	require.NoError(t, err)

	for _, stale := range []int64{0, 1, 3, 99} {
		res, err := g.TryApply(ctx, 1, "cv", ptr(stale), Patch{Title: ptr("second"), Content: summary("x")})
		require.NoError(t, err)
		require.Equal(t, Conflict, res.Outcome)
		require.Equal(t, int64(2), res.CurrentVersion)
		require.Nil(t, res.Document)
	}

	after, err := s.Get(ctx, 1, "cv")
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestConcurrentConditionalWritesOneWins(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	seed(t, s, "cv", 1)
	g := New(s)

	const writers = 16
	results := make([]Result, writers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			res, err := g.TryApply(ctx, 1, "cv", ptr(resume.InitialVersion), Patch{Content: summary("writer")})
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	close(start)
	wg.Wait()

	applied, conflicts := 0, 0
	for _, r := range results {
		switch r.Outcome {
		case Applied:
			applied++
		case Conflict:
			conflicts++
			require.Equal(t, int64(2), r.CurrentVersion)
		}
	}
	require.Equal(t, 1, applied)
	require.Equal(t, writers-1, conflicts)
	require.Zero(t, g.locks.size())
}

// barrierStore makes two Gets rendezvous so both writers observe the same
// version before either swaps, as two API replicas would.
type barrierStore struct {
	store.Store
	calls   atomic.Int32
	barrier sync.WaitGroup
}

func (b *barrierStore) Get(ctx context.Context, ownerID uint, id string) (*resume.Document, error) {
	doc, err := b.Store.Get(ctx, ownerID, id)
	if b.calls.Add(1) <= 2 {
		b.barrier.Done()
		b.barrier.Wait()
	}
	return doc, err
}

func TestSeparateGuardsStillRaceSafely(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	seed(t, mem, "cv", 1)
	shared := &barrierStore{Store: mem}
	shared.barrier.Add(2)

	replicaA, replicaB := New(shared), New(shared)

	var wg sync.WaitGroup
	results := make([]Result, 2)
	for i, g := range []*Guard{replicaA, replicaB} {
		wg.Add(1)
		go func(i int, g *Guard) {
			defer wg.Done()
			res, err := g.TryApply(ctx, 1, "cv", ptr(resume.InitialVersion), Patch{Content: summary("replica")})
			assert.NoError(t, err)
			results[i] = res
		}(i, g)
	}
	wg.Wait()

	outcomes := []Outcome{results[0].Outcome, results[1].Outcome}
	require.ElementsMatch(t, []Outcome{Applied, Conflict}, outcomes)
}

func TestUnconditionalUpdateAlwaysIncrements(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	seed(t, s, "cv", 1)
	g := New(s)

	for want := int64(2); want <= 5; want++ {
		res, err := g.TryApply(ctx, 1, "cv", nil, Patch{Title: ptr("t")})
		require.NoError(t, err)
		require.Equal(t, Applied, res.Outcome)
		require.Equal(t, want, res.Document.Version)
	}
}

func TestAutosaveScenario(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	seed(t, s, "cv", 1)
	g := New(s)

	res, err := g.TryApply(ctx, 1, "cv", ptr(int64(1)), Patch{Content: summary("first autosave")})
	require.NoError(t, err)
	require.Equal(t, Applied, res.Outcome)
	require.Equal(t, int64(2), res.Document.Version)

	res, err = g.TryApply(ctx, 1, "cv", ptr(int64(1)), Patch{Content: summary("stale tab")})
	require.NoError(t, err)
	require.Equal(t, Conflict, res.Outcome)
	require.Equal(t, int64(2), res.CurrentVersion)

	got, err := s.Get(ctx, 1, "cv")
	require.NoError(t, err)
	require.Equal(t, "first autosave", got.Content.Summary.Text)
}

func TestPatchLeavesUnspecifiedFields(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	seed(t, s, "cv", 1)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	g := New(s, WithClock(func() time.Time { return fixed }))

	_, err := g.TryApply(ctx, 1, "cv", nil, Patch{Content: summary("body")})
	require.NoError(t, err)
	res, err := g.TryApply(ctx, 1, "cv", nil, Patch{Title: ptr("only title")})
	require.NoError(t, err)

	require.Equal(t, "only title", res.Document.Title)
	require.Equal(t, "body", res.Document.Content.Summary.Text)
	require.Equal(t, resume.DefaultTemplateID, res.Document.TemplateID)
	require.Equal(t, fixed, res.Document.UpdatedAt)
	require.NotNil(t, res.Document.Content.Experience)
}

func TestForeignAndMissingLookTheSame(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	seed(t, s, "cv", 1)
	g := New(s)

	foreign, err := g.TryApply(ctx, 2, "cv", ptr(int64(1)), Patch{Title: ptr("hijack")})
	require.NoError(t, err)
	missing, err := g.TryApply(ctx, 2, "nope", ptr(int64(1)), Patch{Title: ptr("hijack")})
	require.NoError(t, err)

	require.Equal(t, missing, foreign)
	require.Equal(t, NotFound, foreign.Outcome)

	got, err := s.Get(ctx, 1, "cv")
	require.NoError(t, err)
	require.Equal(t, "My CV", got.Title)
}

func TestDeletedDocumentIsNotFound(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	seed(t, s, "cv", 1)
	g := New(s)
	require.NoError(t, s.Delete(ctx, 1, "cv"))

	res, err := g.TryApply(ctx, 1, "cv", nil, Patch{Title: ptr("x")})
	require.NoError(t, err)
	require.Equal(t, NotFound, res.Outcome)

	res, err = g.TryApply(ctx, 1, "cv", ptr(int64(1)), Patch{Title: ptr("x")})
	require.NoError(t, err)
	require.Equal(t, NotFound, res.Outcome)
}

// flakyStore loses the swap a fixed number of times, or fails outright.
type flakyStore struct {
	store.Store
	lose    int
	failErr error
}

func (f *flakyStore) Swap(ctx context.Context, next *resume.Document, prev int64) error {
	if f.failErr != nil {
		return f.failErr
	}
	if f.lose > 0 {
		f.lose--
		return store.ErrVersionMismatch
	}
	return f.Store.Swap(ctx, next, prev)
}

func TestUnconditionalRetriesLostSwap(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	seed(t, mem, "cv", 1)
	g := New(&flakyStore{Store: mem, lose: 2})

	res, err := g.TryApply(ctx, 1, "cv", nil, Patch{Title: ptr("x")})
	require.NoError(t, err)
	require.Equal(t, Applied, res.Outcome)
	require.Equal(t, int64(2), res.Document.Version)
}

func TestUnconditionalGivesUpUnderContention(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	seed(t, mem, "cv", 1)
	g := New(&flakyStore{Store: mem, lose: 100})

	_, err := g.TryApply(ctx, 1, "cv", nil, Patch{Title: ptr("x")})
	require.ErrorIs(t, err, ErrContention)
}

func TestStoreFailureLeavesVersionUntouched(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	seed(t, mem, "cv", 1)
	boom := errors.New("connection reset")
	g := New(&flakyStore{Store: mem, failErr: boom})

	_, err := g.TryApply(ctx, 1, "cv", ptr(int64(1)), Patch{Title: ptr("x")})
	require.ErrorIs(t, err, boom)

	got, err := mem.Get(ctx, 1, "cv")
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Version)
}

type recordingObserver struct {
	mu        sync.Mutex
	applied   []bool
	conflicts [][2]int64
}

func (r *recordingObserver) Applied(_ context.Context, _ *resume.Document, conditional bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied = append(r.applied, conditional)
}

func (r *recordingObserver) Conflicted(_ context.Context, _ uint, _ string, expected, current int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts = append(r.conflicts, [2]int64{expected, current})
}

func TestObserverSeesDecisions(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	seed(t, s, "cv", 1)
	obs := &recordingObserver{}
	g := New(s, WithObserver(Observers{NopObserver{}, obs}))

	_, err := g.TryApply(ctx, 1, "cv", ptr(int64(1)), Patch{})
	require.NoError(t, err)
	_, err = g.TryApply(ctx, 1, "cv", nil, Patch{})
	require.NoError(t, err)
	_, err = g.TryApply(ctx, 1, "cv", ptr(int64(1)), Patch{})
	require.NoError(t, err)

	require.Equal(t, []bool{true, false}, obs.applied)
	require.Equal(t, [][2]int64{{1, 3}}, obs.conflicts)
}

type blockingObserver struct {
	NopObserver
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingObserver) Applied(context.Context, *resume.Document, bool) {
	first := false
	b.once.Do(func() { first = true })
	if first {
		close(b.entered)
		<-b.release
	}
}

func TestSlowObserverDoesNotHoldDocumentLock(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	seed(t, s, "cv", 1)
	obs := &blockingObserver{entered: make(chan struct{}), release: make(chan struct{})}
	g := New(s, WithObserver(obs))

	firstDone := make(chan Result, 1)
	go func() {
		res, err := g.TryApply(ctx, 1, "cv", ptr(int64(1)), Patch{Title: ptr("first")})
		assert.NoError(t, err)
		firstDone <- res
	}()
	<-obs.entered

	secondDone := make(chan Result, 1)
	go func() {
		res, err := g.TryApply(ctx, 1, "cv", ptr(int64(2)), Patch{Title: ptr("second")})
		assert.NoError(t, err)
		secondDone <- res
	}()

	select {
	case res := <-secondDone:
		require.Equal(t, Applied, res.Outcome)
		require.Equal(t, int64(3), res.Document.Version)
	case <-time.After(2 * time.Second):
		t.Fatal("second writer blocked behind the first writer's observer")
	}

	close(obs.release)
	require.Equal(t, Applied, (<-firstDone).Outcome)
}

func TestTitleOnlyWriteKeepsListsNonNil(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	now := time.Now().UTC()
	require.NoError(t, s.Create(ctx, &resume.Document{
		ID: "legacy", OwnerID: 1, Title: "old", TemplateID: resume.DefaultTemplateID,
		Version: 1, CreatedAt: now, UpdatedAt: now,
	}))
	g := New(s)

	res, err := g.TryApply(ctx, 1, "legacy", ptr(int64(1)), Patch{Title: ptr("new")})
	require.NoError(t, err)
	require.Equal(t, Applied, res.Outcome)

	got, err := s.Get(ctx, 1, "legacy")
	require.NoError(t, err)
	require.NotNil(t, got.Content.Experience)
	require.NotNil(t, got.Content.Education)
	require.NotNil(t, got.Content.Projects)
	require.NotNil(t, got.Content.Skills.Items)
}
