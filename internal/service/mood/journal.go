package mood

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/xinling/backend/internal/logging"
	"github.com/zhouzirui/xinling/backend/internal/metrics"
	"github.com/zhouzirui/xinling/backend/internal/model/mood"
	"github.com/zhouzirui/xinling/backend/internal/storage"
)

var ErrInvalidScore = errors.New("mood score must be between 1 and 5")

// reflectMinRunes: notes longer than this many characters get an AI reflection.
const reflectMinRunes = 5

// Reflector produces a short supportive insight for a note. It always returns text.
type Reflector interface {
	Reflect(ctx context.Context, note string) string
}

// Journal owns the mood entries, newest first, mirrored whole to the store on every change.
type Journal struct {
	store     storage.Store
	reflector Reflector
	now       func() time.Time
	loc       *time.Location
	metrics   *metrics.Metrics
	log       *logrus.Entry

	// saveMu orders snapshot+write pairs so a stale snapshot never lands last.
	saveMu  sync.Mutex
	mu      sync.RWMutex
	entries []mood.Log
}

// Option customises a Journal.
type Option func(*Journal)

func WithClock(now func() time.Time) Option {
	return func(j *Journal) { j.now = now }
}

// WithLocation sets the timezone used for trend dates.
func WithLocation(loc *time.Location) Option {
	return func(j *Journal) {
		if loc != nil {
			j.loc = loc
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(j *Journal) { j.metrics = m }
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(j *Journal) { j.log = logging.Component(logger, "mood") }
}

// NewJournal returns an empty journal; call Load to read persisted entries.
func NewJournal(store storage.Store, reflector Reflector, opts ...Option) *Journal {
	j := &Journal{
		store:     store,
		reflector: reflector,
		now:       time.Now,
		loc:       time.Local,
		log:       logging.Component(nil, "mood"),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Load replaces the in-memory entries with the persisted set. Missing, unreadable
// or malformed data yields an empty journal.
func (j *Journal) Load(ctx context.Context) {
	entries := j.read(ctx)

	j.mu.Lock()
	j.entries = entries
	j.mu.Unlock()

	j.log.WithField("entries", len(entries)).Info("journal loaded")
}

func (j *Journal) read(ctx context.Context) []mood.Log {
	raw, ok, err := j.store.Get(ctx, storage.KeyMoodLogs)
	if err != nil {
		j.log.WithError(err).Warn("journal unreadable, starting empty")
		return []mood.Log{}
	}
	if !ok {
		return []mood.Log{}
	}

	var entries []mood.Log
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		j.log.WithError(err).Warn("journal malformed, starting empty")
		return []mood.Log{}
	}
	return j.sanitize(entries)
}

// sanitize drops entries with an out-of-range score, a blank id, or an id that
// already appeared earlier in the set.
func (j *Journal) sanitize(entries []mood.Log) []mood.Log {
	kept := make([]mood.Log, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if _, ok := mood.LevelFor(entry.Score); !ok {
			continue
		}
		if strings.TrimSpace(entry.ID) == "" {
			continue
		}
		if _, dup := seen[entry.ID]; dup {
			continue
		}
		seen[entry.ID] = struct{}{}
		kept = append(kept, entry)
	}
	if dropped := len(entries) - len(kept); dropped > 0 {
		j.log.WithField("dropped", dropped).Warn("journal held invalid entries, skipped them")
	}
	return kept
}

// Save serialises entries and overwrites the stored set.
func (j *Journal) Save(ctx context.Context, entries []mood.Log) error {
	if entries == nil {
		entries = []mood.Log{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}
	if err := j.store.Set(ctx, storage.KeyMoodLogs, string(data)); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}

// Record validates score, asks for a reflection when the note is long enough,
// prepends the new entry and saves the whole set. A failed reflection never blocks
// the entry. If saving fails the entry stays in memory and the error is returned.
func (j *Journal) Record(ctx context.Context, score int, note string) (mood.Log, error) {
	if _, ok := mood.LevelFor(score); !ok {
		return mood.Log{}, ErrInvalidScore
	}

	var analysis string
	if utf8.RuneCountInString(strings.TrimSpace(note)) > reflectMinRunes && j.reflector != nil {
		analysis = j.reflector.Reflect(ctx, note)
	}

	j.saveMu.Lock()
	defer j.saveMu.Unlock()

	// stamped under saveMu so newest-first order always agrees with Timestamp
	entry := mood.Log{
		ID:         uuid.NewString(),
		Timestamp:  j.now().UnixMilli(),
		Score:      score,
		Note:       note,
		AIAnalysis: analysis,
	}

	j.mu.Lock()
	j.entries = append([]mood.Log{entry}, j.entries...)
	snapshot := append([]mood.Log(nil), j.entries...)
	j.mu.Unlock()

	j.metrics.RecordMoodEntry()
	log := j.log.WithFields(logrus.Fields{"id": entry.ID, "score": score, "reflected": analysis != ""})

	if err := j.Save(ctx, snapshot); err != nil {
		log.WithError(err).Error("journal entry recorded but not persisted")
		return entry, err
	}
	log.Info("journal entry recorded")
	return entry, nil
}

// Entries returns a copy of the journal, newest first.
func (j *Journal) Entries() []mood.Log {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]mood.Log{}, j.entries...)
}

// TrendSeries yields up to mood.TrendWindow of the most recent entries, oldest first.
// The sequence is a snapshot taken at call time and can be ranged over repeatedly.
func (j *Journal) TrendSeries() iter.Seq[mood.TrendPoint] {
	j.mu.RLock()
	n := min(len(j.entries), mood.TrendWindow)
	recent := append([]mood.Log(nil), j.entries[:n]...)
	j.mu.RUnlock()

	loc := j.loc
	return func(yield func(mood.TrendPoint) bool) {
		for i := len(recent) - 1; i >= 0; i-- {
			point := mood.TrendPoint{
				Date:  DisplayDate(recent[i].Time(), loc),
				Score: recent[i].Score,
			}
			if !yield(point) {
				return
			}
		}
	}
}

// DisplayDate formats t as month/day without padding, e.g. "10/9".
func DisplayDate(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return fmt.Sprintf("%d/%d", int(t.Month()), t.Day())
}
