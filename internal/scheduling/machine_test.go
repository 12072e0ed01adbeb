package scheduling_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/JaimeStill/horarium/internal/calendar"
	"github.com/JaimeStill/horarium/internal/index"
	"github.com/JaimeStill/horarium/internal/matching"
	"github.com/JaimeStill/horarium/internal/parsing"
	"github.com/JaimeStill/horarium/internal/pruning"
	"github.com/JaimeStill/horarium/internal/recurrence"
	"github.com/JaimeStill/horarium/internal/schedule"
	"github.com/JaimeStill/horarium/internal/scheduling"
	"github.com/JaimeStill/horarium/internal/snapshot"
	"github.com/JaimeStill/horarium/pkg/pagination"
	"github.com/JaimeStill/horarium/pkg/queue"
)

type fakeStore struct {
	mu          sync.Mutex
	run         *scheduling.Scheduling
	contents    *snapshot.Contents
	pruningRefs []scheduling.PruningRef
	parsingRefs []scheduling.ParsingRef

	committed   []scheduling.Stage
	churchMap   map[int]uuid.UUID
	matchingID  *uuid.UUID
	publication *scheduling.Publication
	indexedHash string
}

func (s *fakeStore) Init(ctx context.Context, websiteID uuid.UUID, opts scheduling.InitOptions) (*scheduling.Scheduling, error) {
	s.run = &scheduling.Scheduling{ID: uuid.New(), WebsiteID: websiteID, Status: scheduling.StatusBuilt}
	return s.run, nil
}

func (s *fakeStore) Find(ctx context.Context, id uuid.UUID) (*scheduling.Scheduling, error) {
	if s.run == nil || s.run.ID != id {
		return nil, scheduling.ErrNotFound
	}
	run := *s.run
	return &run, nil
}

func (s *fakeStore) List(ctx context.Context, page pagination.PageRequest, filters scheduling.Filters) (*pagination.PageResult[scheduling.Scheduling], error) {
	return nil, nil
}

func (s *fakeStore) Contents(ctx context.Context, id uuid.UUID) (*snapshot.Contents, error) {
	return s.contents, nil
}

func (s *fakeStore) advance(stage scheduling.Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run.Status != stage.From() {
		return scheduling.ErrSuperseded
	}
	s.run.Status = stage.To()
	s.committed = append(s.committed, stage)
	return nil
}

func (s *fakeStore) CommitPrune(ctx context.Context, id uuid.UUID, refs []scheduling.PruningRef) error {
	s.pruningRefs = refs
	return s.advance(scheduling.StagePrune)
}

func (s *fakeStore) PruningRefs(ctx context.Context, id uuid.UUID) ([]scheduling.PruningRef, error) {
	return s.pruningRefs, nil
}

func (s *fakeStore) CommitParse(ctx context.Context, id uuid.UUID, churchMap map[int]uuid.UUID, refs []scheduling.ParsingRef) error {
	s.churchMap = churchMap
	s.parsingRefs = refs
	return s.advance(scheduling.StageParse)
}

func (s *fakeStore) ParsingRefs(ctx context.Context, id uuid.UUID) ([]scheduling.ParsingRef, error) {
	return s.parsingRefs, nil
}

func (s *fakeStore) CommitMatch(ctx context.Context, id uuid.UUID, matchingID *uuid.UUID) error {
	s.matchingID = matchingID
	return s.advance(scheduling.StageMatch)
}

func (s *fakeStore) Publish(ctx context.Context, id uuid.UUID, pub scheduling.Publication) (scheduling.PublishOutcome, error) {
	s.publication = &pub
	if s.indexedHash != "" && s.indexedHash == pub.Hash {
		s.run.Status = scheduling.StatusCancelled
		return scheduling.OutcomeDuplicate, nil
	}
	if err := s.advance(scheduling.StageIndex); err != nil {
		return "", err
	}
	s.indexedHash = pub.Hash
	return scheduling.OutcomePublished, nil
}

func (s *fakeStore) PurgeCancelled(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (s *fakeStore) Stale(ctx context.Context, cutoff time.Time) ([]scheduling.Scheduling, error) {
	return nil, nil
}

func (s *fakeStore) RefreshCandidates(ctx context.Context, day time.Time) ([]uuid.UUID, error) {
	return nil, nil
}

type fakeQueue struct {
	mu    sync.Mutex
	kinds []string
	err   error
}

func (q *fakeQueue) Enqueue(ctx context.Context, kind string, target uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.kinds = append(q.kinds, kind)
	return q.err
}

type extractorFunc func(ctx context.Context, src pruning.Source) ([]string, error)

func (f extractorFunc) Extract(ctx context.Context, src pruning.Source) ([]string, error) {
	return f(ctx, src)
}

type fakePrunings struct {
	pruning.System
	ensured  [][]string
	prunings []pruning.Pruning
}

func (p *fakePrunings) Ensure(ctx context.Context, lines []string) (*pruning.Pruning, error) {
	p.ensured = append(p.ensured, lines)
	return &pruning.Pruning{ID: uuid.New(), Lines: lines, V2Indices: []int{0}}, nil
}

func (p *fakePrunings) FindMany(ctx context.Context, ids []uuid.UUID) ([]pruning.Pruning, error) {
	return p.prunings, nil
}

type fakeParsings struct {
	parsing.System
	mu       sync.Mutex
	texts    []string
	parsings []parsing.Parsing
	cleaned  bool
	refused  map[string]bool
}

func (p *fakeParsings) Ensure(ctx context.Context, prunedText string, roster parsing.Roster) (*parsing.Parsing, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.texts = append(p.texts, prunedText)
	if p.refused[prunedText] {
		return nil, fmt.Errorf("%w: %w", parsing.ErrOracleFailed, parsing.ErrOracleUnavailable)
	}
	return &parsing.Parsing{ID: uuid.New(), PrunedText: prunedText}, nil
}

func (p *fakeParsings) FindMany(ctx context.Context, ids []uuid.UUID) ([]parsing.Parsing, error) {
	return p.parsings, nil
}

func (p *fakeParsings) CleanupModerations(ctx context.Context) (int64, error) {
	p.cleaned = true
	return 0, nil
}

type fakeMatchings struct {
	matching.System
	matrix *matching.Matrix
}

func (m *fakeMatchings) Ensure(ctx context.Context, mx matching.Matrix) (*matching.Matching, error) {
	m.matrix = &mx
	return &matching.Matching{ID: uuid.New(), Matrix: mx}, nil
}

type fixture struct {
	store    *fakeStore
	queue    *fakeQueue
	prunings *fakePrunings
	parsings *fakeParsings
	matching *fakeMatchings
	rt       *scheduling.Runtime
}

func newFixture(status scheduling.Status) *fixture {
	f := &fixture{
		store: &fakeStore{
			run: &scheduling.Scheduling{
				ID:        uuid.New(),
				WebsiteID: uuid.New(),
				Status:    status,
			},
			contents: &snapshot.Contents{},
		},
		queue:    &fakeQueue{},
		prunings: &fakePrunings{},
		parsings: &fakeParsings{},
		matching: &fakeMatchings{},
	}

	f.rt = &scheduling.Runtime{
		Store: f.store,
		Queue: f.queue,
		Extractor: extractorFunc(func(ctx context.Context, src pruning.Source) ([]string, error) {
			if src.Content == nil {
				return nil, pruning.ErrNoContent
			}
			return []string{*src.Content}, nil
		}),
		Prunings:         f.prunings,
		Parsings:         f.parsings,
		Matcher:          matching.NewProximityMatcher(),
		Matchings:        f.matching,
		Materializer:     index.NewMaterializer(recurrence.NewEngine(calendar.ZoneC, 28), 14, 4*time.Hour),
		ParseConcurrency: 2,
		Location:         time.UTC,
		Now:              func() time.Time { return time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC) },
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return f
}

func (f *fixture) machine(t *testing.T) *scheduling.Machine {
	t.Helper()
	m, err := scheduling.NewMachine(f.rt, tracenoop.NewTracerProvider().Tracer(""), metricnoop.NewMeterProvider().Meter(""))
	require.NoError(t, err)
	return m
}

func (f *fixture) task(stage scheduling.Stage) queue.Task {
	return queue.Task{ID: ulid.Make(), Kind: string(stage), Target: f.store.run.ID}
}

func ptr[T any](v T) *T { return &v }

func TestInitEnqueuesPrune(t *testing.T) {
	f := newFixture(scheduling.StatusBuilt)
	m := f.machine(t)

	s, err := m.Init(context.Background(), uuid.New(), scheduling.InitOptions{})
	require.NoError(t, err)
	assert.Equal(t, scheduling.StatusBuilt, s.Status)
	assert.Equal(t, []string{"prune"}, f.queue.kinds)
}

func TestRunSupersededRun(t *testing.T) {
	f := newFixture(scheduling.StatusCancelled)
	m := f.machine(t)

	err := m.Run(context.Background(), f.task(scheduling.StagePrune))
	require.NoError(t, err)
	assert.Empty(t, f.store.committed)
	assert.Empty(t, f.queue.kinds)
}

func TestRunDeletedRun(t *testing.T) {
	f := newFixture(scheduling.StatusBuilt)
	m := f.machine(t)

	task := f.task(scheduling.StagePrune)
	task.Target = uuid.New()

	require.NoError(t, m.Run(context.Background(), task))
	assert.Empty(t, f.queue.kinds)
}

func TestRunUnknownStage(t *testing.T) {
	f := newFixture(scheduling.StatusBuilt)
	m := f.machine(t)

	task := f.task(scheduling.StagePrune)
	task.Kind = "crawl"

	assert.ErrorIs(t, m.Run(context.Background(), task), scheduling.ErrUnknownStage)
}

func TestRunRecoversPanic(t *testing.T) {
	f := newFixture(scheduling.StatusBuilt)
	f.store.contents.Scrapings = []snapshot.Scraping{{VersionID: 1, ExtractedHTML: ptr("<p>x</p>")}}
	f.rt.Extractor = extractorFunc(func(ctx context.Context, src pruning.Source) ([]string, error) {
		panic("extractor exploded")
	})
	m := f.machine(t)

	err := m.Run(context.Background(), f.task(scheduling.StagePrune))
	assert.ErrorIs(t, err, scheduling.ErrStagePanic)
	assert.Equal(t, scheduling.StatusBuilt, f.store.run.Status)
	assert.Empty(t, f.queue.kinds)
}

func TestPruneStage(t *testing.T) {
	f := newFixture(scheduling.StatusBuilt)
	f.store.contents.Scrapings = []snapshot.Scraping{
		{VersionID: 1, URL: "https://example.org/a", ExtractedHTML: ptr("Samedi 10h-12h")},
		{VersionID: 2, URL: "https://example.org/b"},
	}
	f.store.contents.Images = []snapshot.Image{{VersionID: 3, Name: "affiche.png", ExtractedText: ptr("Mardi 18h")}}
	m := f.machine(t)

	require.NoError(t, m.Run(context.Background(), f.task(scheduling.StagePrune)))

	assert.Len(t, f.prunings.ensured, 2)
	require.Len(t, f.store.pruningRefs, 2)
	assert.Equal(t, pruning.SourceScraping, f.store.pruningRefs[0].SourceKind)
	assert.Equal(t, int64(1), f.store.pruningRefs[0].SourceVersionID)
	assert.Equal(t, pruning.SourceImage, f.store.pruningRefs[1].SourceKind)
	assert.Equal(t, scheduling.StatusPruned, f.store.run.Status)
	assert.Equal(t, []string{"parse"}, f.queue.kinds)
}

func TestParseStage(t *testing.T) {
	f := newFixture(scheduling.StatusPruned)
	church := uuid.New()
	f.store.contents.Churches = []snapshot.Church{{ID: church, Name: "Saint-Pierre"}}

	kept := pruning.Pruning{ID: uuid.New(), Lines: []string{"Accueil", "Confessions samedi 10h"}, V2Indices: []int{1}}
	empty := pruning.Pruning{ID: uuid.New(), Lines: []string{"Accueil"}, V2Indices: []int{}}
	f.store.pruningRefs = []scheduling.PruningRef{
		{SourceKind: pruning.SourceScraping, SourceVersionID: 1, PruningID: kept.ID},
		{SourceKind: pruning.SourceScraping, SourceVersionID: 2, PruningID: kept.ID},
		{SourceKind: pruning.SourceImage, SourceVersionID: 3, PruningID: empty.ID},
	}
	f.prunings.prunings = []pruning.Pruning{kept, empty}
	m := f.machine(t)

	require.NoError(t, m.Run(context.Background(), f.task(scheduling.StageParse)))

	assert.Equal(t, []string{"Confessions samedi 10h"}, f.parsings.texts)
	require.Len(t, f.store.parsingRefs, 1)
	assert.Equal(t, kept.ID, f.store.parsingRefs[0].PruningID)
	assert.Equal(t, map[int]uuid.UUID{0: church}, f.store.churchMap)
	assert.Equal(t, []string{"match"}, f.queue.kinds)
}

func TestParseStageOracleUnavailable(t *testing.T) {
	f := newFixture(scheduling.StatusPruned)

	masses := pruning.Pruning{ID: uuid.New(), Lines: []string{"Messe dimanche 10h30"}, V2Indices: []int{0}}
	confessions := pruning.Pruning{ID: uuid.New(), Lines: []string{"Confessions samedi 10h"}, V2Indices: []int{0}}
	f.store.pruningRefs = []scheduling.PruningRef{
		{SourceKind: pruning.SourceScraping, SourceVersionID: 1, PruningID: masses.ID},
		{SourceKind: pruning.SourceScraping, SourceVersionID: 2, PruningID: confessions.ID},
	}
	f.prunings.prunings = []pruning.Pruning{masses, confessions}
	f.parsings.refused = map[string]bool{"Confessions samedi 10h": true}
	m := f.machine(t)

	require.NoError(t, m.Run(context.Background(), f.task(scheduling.StageParse)))

	require.Len(t, f.store.parsingRefs, 1)
	assert.Equal(t, masses.ID, f.store.parsingRefs[0].PruningID)
	assert.Equal(t, scheduling.StatusParsed, f.store.run.Status)
	assert.Equal(t, []string{"match"}, f.queue.kinds)
}

func TestMatchStage(t *testing.T) {
	t.Run("no external location", func(t *testing.T) {
		f := newFixture(scheduling.StatusParsed)
		m := f.machine(t)

		require.NoError(t, m.Run(context.Background(), f.task(scheduling.StageMatch)))
		assert.Nil(t, f.store.matchingID)
		assert.Nil(t, f.matching.matrix)
		assert.Equal(t, []string{"index"}, f.queue.kinds)
	})

	t.Run("external locations", func(t *testing.T) {
		f := newFixture(scheduling.StatusParsed)
		church := uuid.New()
		loc := uuid.New()
		f.store.contents.Churches = []snapshot.Church{{ID: church, Name: "Église Saint-Pierre"}}
		f.store.contents.ExternalLocations = []snapshot.ExternalLocation{{ID: loc, Name: "St Pierre"}}
		m := f.machine(t)

		require.NoError(t, m.Run(context.Background(), f.task(scheduling.StageMatch)))
		require.NotNil(t, f.store.matchingID)
		require.NotNil(t, f.matching.matrix)

		got, ok := f.matching.matrix.ChurchFor(loc)
		assert.True(t, ok)
		assert.Equal(t, church, got)
	})
}

func TestIndexStage(t *testing.T) {
	f := newFixture(scheduling.StatusMatched)
	church := uuid.New()
	color := "#336699"
	f.store.run.ChurchMap = map[int]uuid.UUID{0: church}
	f.store.contents.Churches = []snapshot.Church{{ID: church, Name: "Saint-Pierre", Color: &color}}
	f.store.parsingRefs = []scheduling.ParsingRef{{PruningID: uuid.New(), ParsingID: uuid.New()}}

	validated := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	f.parsings.parsings = []parsing.Parsing{{
		ID: f.store.parsingRefs[0].ParsingID,
		LLMOutput: &schedule.SchedulesList{Schedules: []schedule.ScheduleItem{
			schedule.MustNew(schedule.ScheduleItem{
				ChurchID: schedule.Church(0),
				DateRule: schedule.RegularRule{Recurrence: schedule.Weekly{Weekdays: []time.Weekday{time.Saturday}}},
				Start:    schedule.Clock(10, 0),
				End:      schedule.Clock(12, 0),
			}),
		}},
		ValidatedAt: &validated,
	}}
	m := f.machine(t)

	require.NoError(t, m.Run(context.Background(), f.task(scheduling.StageIndex)))

	pub := f.store.publication
	require.NotNil(t, pub)
	assert.Len(t, pub.Merged, 1)
	assert.NotEmpty(t, pub.Hash)
	assert.Equal(t, index.CategoryNone, pub.Category)
	assert.True(t, pub.WindowStart.Equal(calendar.Date(2026, time.March, 2)))

	require.Len(t, pub.Events, 2)
	for _, e := range pub.Events {
		require.NotNil(t, e.ChurchID)
		assert.Equal(t, church, *e.ChurchID)
		assert.Equal(t, &color, e.ChurchColor)
		assert.True(t, e.HasBeenModerated)
	}

	assert.True(t, f.parsings.cleaned)
	assert.Equal(t, scheduling.StatusIndexed, f.store.run.Status)
	assert.Empty(t, f.queue.kinds)
}

func TestIndexStageRepublishAfterModeration(t *testing.T) {
	church := uuid.New()
	item := schedule.MustNew(schedule.ScheduleItem{
		ChurchID: schedule.Church(0),
		DateRule: schedule.RegularRule{Recurrence: schedule.Weekly{Weekdays: []time.Weekday{time.Sunday}}},
		Start:    schedule.Clock(11, 0),
	})

	run := func(f *fixture, validated *time.Time) scheduling.Status {
		f.store.run.Status = scheduling.StatusMatched
		f.store.run.ChurchMap = map[int]uuid.UUID{0: church}
		f.store.contents.Churches = []snapshot.Church{{ID: church, Name: "Notre-Dame"}}
		f.store.parsingRefs = []scheduling.ParsingRef{{PruningID: uuid.New(), ParsingID: uuid.New()}}
		f.parsings.parsings = []parsing.Parsing{{
			ID:          f.store.parsingRefs[0].ParsingID,
			LLMOutput:   &schedule.SchedulesList{Schedules: []schedule.ScheduleItem{item}},
			ValidatedAt: validated,
		}}
		require.NoError(t, f.machine(t).Run(context.Background(), f.task(scheduling.StageIndex)))
		return f.store.run.Status
	}

	f := newFixture(scheduling.StatusMatched)
	require.Equal(t, scheduling.StatusIndexed, run(f, nil))
	first := f.store.publication.Hash

	assert.Equal(t, scheduling.StatusCancelled, run(f, nil), "unchanged events republished")

	validated := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, scheduling.StatusIndexed, run(f, &validated))
	assert.NotEqual(t, first, f.store.publication.Hash)
	for _, e := range f.store.publication.Events {
		assert.True(t, e.HasBeenModerated)
	}
}

func TestIndexStageWithoutSource(t *testing.T) {
	f := newFixture(scheduling.StatusMatched)
	m := f.machine(t)

	require.NoError(t, m.Run(context.Background(), f.task(scheduling.StageIndex)))
	require.NotNil(t, f.store.publication)
	assert.Equal(t, index.CategoryNoSource, f.store.publication.Category)
	assert.Empty(t, f.store.publication.Events)
}

func TestEnqueueFailureKeepsCommit(t *testing.T) {
	f := newFixture(scheduling.StatusParsed)
	f.queue.err = errors.New("queue down")
	m := f.machine(t)

	require.NoError(t, m.Run(context.Background(), f.task(scheduling.StageMatch)))
	assert.Equal(t, scheduling.StatusMatched, f.store.run.Status)
}
