// Package downloads implements client-side admission control over concurrent
// downloads: a FIFO queue with a fixed active-set bound, request
// deduplication by derived identifier, and channel-based status propagation
// to subscribers.
package downloads

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harmonia-app/harmonia/internal/models"
)

// MaxConcurrent is the fixed bound on simultaneously active downloads.
const MaxConcurrent = 3

// reprocessDebounce coalesces bursts of status events into a single queue
// reprocessing pass.
const reprocessDebounce = 50 * time.Millisecond

// Status is a download task's lifecycle state.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusDone        Status = "done"
	StatusError       Status = "error"
)

// Task is the transient in-memory state of one download. Persisted output
// (the audio file) is handed off to the library store's audio path.
type Task struct {
	ID      string `json:"downloadId"`
	Term    string `json:"term"`
	Status  Status `json:"status"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message,omitempty"`
}

// Event is a pushed status notification. Events are keyed by the original
// search term, not the platform id.
type Event struct {
	Term    string `json:"term"`
	Status  Status `json:"status"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message,omitempty"`
	Output  string `json:"output,omitempty"` // raw tool output for downloading events
}

// Fetcher executes one download, publishing progress through publish. The
// fetch runs to completion or tool exit; there is no cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, song models.Song, term string, publish func(Event))
}

// DeriveID derives the download identifier for a song. YouTube-sourced songs
// use the raw platform id, which enables file-exists short-circuiting by id.
// Everything else falls back to title plus comma-joined artist names — two
// distinct recordings with identical title and artist text collide by
// design; that merge is a documented limitation, not a bug.
func DeriveID(song models.Song) string {
	if song.Source == models.SourceYouTube && song.ID != "" {
		return song.ID
	}
	names := make([]string, len(song.Artists))
	for i, a := range song.Artists {
		names[i] = a.Name
	}
	return song.Title + "," + strings.Join(names, ",")
}

// DeriveTerm builds the search term a song downloads under, which also keys
// its status events.
func DeriveTerm(song models.Song) string {
	if len(song.Artists) == 0 {
		return song.Title
	}
	return song.Title + " " + song.ArtistNames()
}

// Manager is the bounded-concurrency download queue. The active set is the
// sole concurrency-control primitive: it is consulted before any queued item
// is promoted, and completion events remove entries from it.
type Manager struct {
	mu      sync.Mutex
	fetcher Fetcher
	logger  *log.Logger

	maxActive int
	queue     []string // task ids, FIFO
	songs     map[string]models.Song
	active    map[string]struct{}
	tasks     map[string]*Task
	idByTerm  map[string]string

	events  chan Event
	pending *time.Timer // debounced reprocess trigger
}

// NewManager creates a Manager draining into fetcher.
func NewManager(fetcher Fetcher, logger *log.Logger) *Manager {
	return &Manager{
		fetcher:   fetcher,
		logger:    logger.With("component", "downloads"),
		maxActive: MaxConcurrent,
		songs:     make(map[string]models.Song),
		active:    make(map[string]struct{}),
		tasks:     make(map[string]*Task),
		idByTerm:  make(map[string]string),
		events:    make(chan Event, 64),
	}
}

// Events is the subscriber channel. Status transitions are delivered in
// order; slow subscribers drop events rather than blocking downloads.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// Request enqueues a download for song and returns its identifier. The call
// is idempotent: an identifier that is already done or downloading returns
// as-is without re-queuing, and a pending one is queued at most once.
func (m *Manager) Request(ctx context.Context, song models.Song) string {
	id := DeriveID(song)
	term := DeriveTerm(song)

	m.mu.Lock()
	if task, ok := m.tasks[id]; ok {
		switch task.Status {
		case StatusDone, StatusDownloading:
			m.mu.Unlock()
			return id
		case StatusPending:
			if !m.queued(id) {
				m.queue = append(m.queue, id)
			}
			m.mu.Unlock()
			m.process(ctx)
			return id
		}
		// A failed task is re-enqueued for a fresh cycle.
	}

	m.tasks[id] = &Task{ID: id, Term: term, Status: StatusPending}
	m.songs[id] = song
	m.idByTerm[term] = id
	m.queue = append(m.queue, id)
	m.mu.Unlock()

	m.logger.Debug("download queued", "id", id, "term", term)
	m.process(ctx)
	return id
}

// Task returns a copy of the task state for id.
func (m *Manager) Task(id string) (Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *task, true
}

// Tasks returns a snapshot of all task states.
func (m *Manager) Tasks() []Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Task, 0, len(m.tasks))
	for _, task := range m.tasks {
		out = append(out, *task)
	}
	return out
}

// QueueLen returns the number of queued (not yet promoted) identifiers.
func (m *Manager) QueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Publish delivers a pushed status event. Events without a term are logged
// and ignored, never fatal. Terminal events free the identifier's slot in
// the active set and trigger a debounced queue reprocess.
func (m *Manager) Publish(ctx context.Context, ev Event) {
	if ev.Term == "" {
		m.logger.Warn("dropping status event without term", "status", ev.Status)
		return
	}

	m.mu.Lock()
	id, ok := m.idByTerm[ev.Term]
	if !ok {
		m.mu.Unlock()
		m.logger.Warn("dropping status event for unknown term", "term", ev.Term)
		return
	}

	task := m.tasks[id]
	task.Status = ev.Status
	if ev.Path != "" {
		task.Path = ev.Path
	}
	if ev.Message != "" {
		task.Message = ev.Message
	}

	terminal := ev.Status == StatusDone || ev.Status == StatusError
	if terminal {
		delete(m.active, id)
	}
	m.mu.Unlock()

	select {
	case m.events <- ev:
	default:
		m.logger.Warn("subscriber channel full, dropping event", "term", ev.Term, "status", ev.Status)
	}

	if terminal {
		m.scheduleProcess(ctx)
	}
}

// process promotes queued identifiers while the active set has room. A
// queued id already present in the active set is skipped with a warning;
// that guards the double-enqueue race.
func (m *Manager) process(ctx context.Context) {
	for {
		m.mu.Lock()
		if len(m.active) >= m.maxActive || len(m.queue) == 0 {
			m.mu.Unlock()
			return
		}

		id := m.queue[0]
		m.queue = m.queue[1:]

		if _, dup := m.active[id]; dup {
			m.logger.Warn("skipping already-active download", "id", id)
			m.mu.Unlock()
			continue
		}

		m.active[id] = struct{}{}
		task := m.tasks[id]
		task.Status = StatusDownloading
		song := m.songs[id]
		term := task.Term
		m.mu.Unlock()

		m.logger.Info("download started", "id", id, "term", term)
		go m.fetcher.Fetch(ctx, song, term, func(ev Event) {
			m.Publish(ctx, ev)
		})
	}
}

// scheduleProcess coalesces reprocessing triggered by status changes.
func (m *Manager) scheduleProcess(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending != nil {
		return
	}
	m.pending = time.AfterFunc(reprocessDebounce, func() {
		m.mu.Lock()
		m.pending = nil
		m.mu.Unlock()
		m.process(ctx)
	})
}

func (m *Manager) queued(id string) bool {
	for _, queued := range m.queue {
		if queued == id {
			return true
		}
	}
	return false
}
