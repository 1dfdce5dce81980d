package mood

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/xinling/backend/internal/config"
	"github.com/zhouzirui/xinling/backend/internal/model/mood"
	"github.com/zhouzirui/xinling/backend/internal/service/ai"
	"github.com/zhouzirui/xinling/backend/internal/storage"
)

type stubReflector struct {
	calls []string
	reply string
}

func (r *stubReflector) Reflect(_ context.Context, note string) string {
	r.calls = append(r.calls, note)
	return r.reply
}

type failingStore struct {
	storage.Store
	getErr error
	setErr error
}

func (f failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	return f.Store.Get(ctx, key)
}

func (f failingStore) Set(ctx context.Context, key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Store.Set(ctx, key, value)
}

// steppingClock advances one day per call.
func steppingClock(start time.Time) func() time.Time {
	current := start.Add(-24 * time.Hour)
	return func() time.Time {
		current = current.Add(24 * time.Hour)
		return current
	}
}

func newJournal(t *testing.T, store storage.Store, reflector Reflector) *Journal {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	start := time.Date(2026, 10, 1, 9, 0, 0, 0, loc)
	return NewJournal(store, reflector, WithClock(steppingClock(start)), WithLocation(loc))
}

func TestRecordWithReflection(t *testing.T) {
	reflector := &stubReflector{reply: "累的时候休息一下，也是在照顾自己。"}
	j := newJournal(t, storage.NewMemoryStore(), reflector)

	entry, err := j.Record(context.Background(), 2, "今天很累，什么都不想做")
	require.NoError(t, err)

	assert.Equal(t, 2, entry.Score)
	assert.Equal(t, "今天很累，什么都不想做", entry.Note)
	assert.Equal(t, reflector.reply, entry.AIAnalysis)
	assert.NotEmpty(t, entry.ID)
	assert.Len(t, j.Entries(), 1)
	assert.Equal(t, []string{"今天很累，什么都不想做"}, reflector.calls)
}

func TestRecordReflectionFailureStillSaves(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := ai.NewService(config.AIConfig{}) // no credential: reflection falls back
	j := newJournal(t, store, svc)

	entry, err := j.Record(context.Background(), 2, "今天很累，什么都不想做")
	require.NoError(t, err)
	assert.Equal(t, ai.ReflectionFailed, entry.AIAnalysis)

	reloaded := newJournal(t, store, nil)
	reloaded.Load(context.Background())
	require.Len(t, reloaded.Entries(), 1)
	assert.Equal(t, entry, reloaded.Entries()[0])
}

func TestRecordShortNoteSkipsReflection(t *testing.T) {
	reflector := &stubReflector{reply: "unused"}
	j := newJournal(t, storage.NewMemoryStore(), reflector)

	for _, note := range []string{"", "还行", "  有点烦躁  ", "okay!"} {
		entry, err := j.Record(context.Background(), 3, note)
		require.NoError(t, err)
		assert.Empty(t, entry.AIAnalysis)
	}
	assert.Empty(t, reflector.calls)
}

func TestRecordRejectsInvalidScores(t *testing.T) {
	store := storage.NewMemoryStore()
	j := newJournal(t, store, &stubReflector{})

	valid := 0
	for _, score := range []int{3, 0, 6, 5, -2, 1, 9} {
		_, err := j.Record(context.Background(), score, "")
		if score >= 1 && score <= 5 {
			require.NoError(t, err)
			valid++
		} else {
			assert.ErrorIs(t, err, ErrInvalidScore)
		}
	}

	entries := j.Entries()
	assert.Len(t, entries, valid)
	assert.Equal(t, []int{1, 5, 3}, scores(entries), "newest first")
}

func TestLoadMissingOrMalformed(t *testing.T) {
	ctx := context.Background()

	empty := newJournal(t, storage.NewMemoryStore(), nil)
	empty.Load(ctx)
	assert.Empty(t, empty.Entries())
	assert.NotNil(t, empty.Entries())

	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, storage.KeyMoodLogs, "{not json"))
	malformed := newJournal(t, store, nil)
	malformed.Load(ctx)
	assert.Empty(t, malformed.Entries())

	require.NoError(t, store.Set(ctx, storage.KeyMoodLogs, "null"))
	null := newJournal(t, store, nil)
	null.Load(ctx)
	assert.NotNil(t, null.Entries())

	broken := newJournal(t, failingStore{Store: storage.NewMemoryStore(), getErr: errors.New("disk gone")}, nil)
	broken.Load(ctx)
	assert.Empty(t, broken.Entries())

	require.NoError(t, store.Set(ctx, storage.KeyMoodLogs, `[
		{"id":"a","timestamp":1760000000000,"score":4,"note":"ok"},
		{"id":"b","timestamp":1759990000000,"score":0},
		{"id":"c","timestamp":1759980000000,"score":9},
		{"id":"a","timestamp":1759970000000,"score":2},
		{"id":"","timestamp":1759960000000,"score":3},
		{"id":"d","timestamp":1759950000000,"score":1}
	]`))
	invalid := newJournal(t, store, nil)
	invalid.Load(ctx)
	entries := invalid.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].ID)
	assert.Equal(t, 4, entries[0].Score)
	assert.Equal(t, "d", entries[1].ID)
	assert.Equal(t, []int{1, 4}, trendScores(slices.Collect(invalid.TrendSeries())))
}

func TestConcurrentRecordKeepsNewestFirst(t *testing.T) {
	j := newJournal(t, storage.NewMemoryStore(), nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(score int) {
			defer wg.Done()
			_, err := j.Record(ctx, score, "")
			assert.NoError(t, err)
		}(i%5 + 1)
	}
	wg.Wait()

	entries := j.Entries()
	require.Len(t, entries, 20)
	for i := 1; i < len(entries); i++ {
		assert.Greater(t, entries[i-1].Timestamp, entries[i].Timestamp, "entry %d out of order", i)
	}
}

func TestSaveAndReloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	j := newJournal(t, store, &stubReflector{reply: "你已经做得很好了。"})

	notes := []string{"早上跑步了，很开心", "", "被老板批评了有点难过", "一般", "和朋友吃了顿好吃的"}
	for i, note := range notes {
		_, err := j.Record(ctx, i+1, note)
		require.NoError(t, err)
	}

	reloaded := newJournal(t, store, nil)
	reloaded.Load(ctx)
	assert.Equal(t, j.Entries(), reloaded.Entries())
	assert.Len(t, reloaded.Entries(), 5)
}

func TestSaveFailureKeepsEntryInMemory(t *testing.T) {
	store := failingStore{Store: storage.NewMemoryStore(), setErr: errors.New("read-only")}
	j := newJournal(t, store, nil)

	entry, err := j.Record(context.Background(), 4, "")
	require.Error(t, err)
	assert.Equal(t, 4, entry.Score)
	assert.Len(t, j.Entries(), 1)
}

func TestTrendSeriesChronologicalAndCapped(t *testing.T) {
	j := newJournal(t, storage.NewMemoryStore(), nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := j.Record(ctx, i%5+1, "")
		require.NoError(t, err)
	}

	points := slices.Collect(j.TrendSeries())
	require.Len(t, points, mood.TrendWindow)

	// entries were recorded on Oct 1..10; the last seven are Oct 4..10
	assert.Equal(t, "10/4", points[0].Date)
	assert.Equal(t, "10/10", points[6].Date)
	assert.Equal(t, []int{4, 5, 1, 2, 3, 4, 5}, trendScores(points))

	again := slices.Collect(j.TrendSeries())
	assert.Equal(t, points, again, "sequence is restartable")
}

func TestTrendSeriesFewEntries(t *testing.T) {
	j := newJournal(t, storage.NewMemoryStore(), nil)
	assert.Empty(t, slices.Collect(j.TrendSeries()))

	_, err := j.Record(context.Background(), 2, "")
	require.NoError(t, err)

	points := slices.Collect(j.TrendSeries())
	assert.Len(t, points, 1)
	assert.False(t, mood.ChartReady(len(points)))
}

func TestTrendSeriesStopsEarly(t *testing.T) {
	j := newJournal(t, storage.NewMemoryStore(), nil)
	for i := 0; i < 3; i++ {
		_, err := j.Record(context.Background(), 3, "")
		require.NoError(t, err)
	}

	count := 0
	for range j.TrendSeries() {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestDisplayDateUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)

	// 2026-10-18 20:30 UTC is already the 19th in Shanghai
	ts := time.Date(2026, 10, 18, 20, 30, 0, 0, time.UTC)
	assert.Equal(t, "10/19", DisplayDate(ts, loc))
	assert.Equal(t, "10/18", DisplayDate(ts, time.UTC))
}

func scores(entries []mood.Log) []int {
	out := make([]int, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Score)
	}
	return out
}

func trendScores(points []mood.TrendPoint) []int {
	out := make([]int, 0, len(points))
	for _, p := range points {
		out = append(out, p.Score)
	}
	return out
}
