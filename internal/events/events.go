// Package events provides typed event emission with fan-out to
// subscribers. The scoring cycle, backtest engine, and backup service
// emit events here; the websocket progress stream subscribes.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType represents different event types
type EventType string

const (
	CycleStarted   EventType = "CYCLE_STARTED"
	CycleProgress  EventType = "CYCLE_PROGRESS"
	CycleCompleted EventType = "CYCLE_COMPLETED"

	BacktestStarted   EventType = "BACKTEST_STARTED"
	BacktestProgress  EventType = "BACKTEST_PROGRESS"
	BacktestCompleted EventType = "BACKTEST_COMPLETED"

	BackupCompleted EventType = "BACKUP_COMPLETED"
	ErrorOccurred   EventType = "ERROR_OCCURRED"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}

// EventData is implemented by typed event payloads so emitters cannot
// attach a payload to the wrong event type.
type EventData interface {
	EventType() EventType
}

// CycleProgressData carries per-chunk progress during a scoring cycle.
type CycleProgressData struct {
	ScoreDate string `json:"score_date"`
	Scored    int    `json:"scored"`
	Skipped   int    `json:"skipped"`
	Total     int    `json:"total"`
	Phase     string `json:"phase"`
}

// EventType returns the event type for CycleProgressData
func (d *CycleProgressData) EventType() EventType { return CycleProgress }

// CycleCompletedData summarizes a finished scoring cycle.
type CycleCompletedData struct {
	ScoreDate  string `json:"score_date"`
	Scored     int    `json:"scored"`
	Skipped    int    `json:"skipped"`
	DurationMS int64  `json:"duration_ms"`
}

// EventType returns the event type for CycleCompletedData
func (d *CycleCompletedData) EventType() EventType { return CycleCompleted }

// BacktestProgressData carries per-phase progress during a backtest run.
type BacktestProgressData struct {
	RunID     string `json:"run_id"`
	Phase     string `json:"phase"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
}

// EventType returns the event type for BacktestProgressData
func (d *BacktestProgressData) EventType() EventType { return BacktestProgress }

// Manager handles event emission, logging, and fan-out to subscribers.
type Manager struct {
	log zerolog.Logger

	mu          sync.RWMutex
	subscribers map[int]chan Event
	nextID      int
}

// NewManager creates a new event manager
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		log:         log.With().Str("service", "events").Logger(),
		subscribers: make(map[int]chan Event),
	}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function. The channel is buffered; a subscriber that falls
// behind loses events rather than blocking emitters.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	ch := make(chan Event, 64)
	m.subscribers[id] = ch

	unsubscribe := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if ch, ok := m.subscribers[id]; ok {
			delete(m.subscribers, id)
			close(ch)
		}
	}

	return ch, unsubscribe
}

// Emit emits an event
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}

	eventJSON, _ := json.Marshal(event)
	m.log.Debug().
		Str("event_type", string(eventType)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber buffer full; drop rather than stall the cycle.
		}
	}
}

// EmitTyped emits an event with a typed payload. The payload is flattened
// to a map so subscribers see a uniform wire shape.
func (m *Manager) EmitTyped(module string, data EventData) {
	raw, err := json.Marshal(data)
	if err != nil {
		m.log.Error().Err(err).Str("event_type", string(data.EventType())).Msg("Failed to marshal event data")
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		m.log.Error().Err(err).Str("event_type", string(data.EventType())).Msg("Failed to flatten event data")
		return
	}

	m.Emit(data.EventType(), module, payload)
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	data := map[string]interface{}{
		"error":   err.Error(),
		"context": context,
	}
	m.Emit(ErrorOccurred, module, data)
}
