// Package coordinator glues the domain stores to the local store and
// the sync engine. It subscribes to every store's change stream,
// persists the full per-kind snapshot on each event, and enqueues a
// ChangeToPush for local mutations, but never for pulled data, which
// would otherwise round-trip back to the server. Keeping this
// subscription here, outside the stores and outside the engine, keeps
// the dependency graph acyclic: stores never reference the engine.
package coordinator

import (
	"context"
	"log/slog"
	"time"

	"github.com/dtgoitia/healthsync/internal/domain"
	"github.com/dtgoitia/healthsync/internal/localstore"
	"github.com/dtgoitia/healthsync/internal/metricstore"
	"github.com/dtgoitia/healthsync/internal/settingsstore"
	"github.com/dtgoitia/healthsync/internal/symptomstore"
	"github.com/dtgoitia/healthsync/internal/syncengine"
)

// eventBuffer sizes each subscription channel. Publishes block once a
// buffer fills, which preserves ordering at the cost of backpressure
// on the mutating caller; 64 is far beyond any realistic burst from a
// single-user client.
const eventBuffer = 64

// Coordinator owns the store-event → persist/enqueue wiring.
type Coordinator struct {
	local    *localstore.Store
	symptoms *symptomstore.Store
	metrics  *metricstore.Store
	settings *settingsstore.Store
	engine   *syncengine.Engine
	logger   *slog.Logger

	now func() time.Time

	symptomEvents  <-chan symptomstore.Event
	metricEvents   <-chan metricstore.Event
	settingsEvents <-chan settingsstore.Event
}

// New builds a Coordinator and immediately subscribes to all three
// stores, so no event published after construction can be missed.
func New(
	local *localstore.Store,
	symptoms *symptomstore.Store,
	metrics *metricstore.Store,
	settings *settingsstore.Store,
	engine *syncengine.Engine,
	logger *slog.Logger,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		local:          local,
		symptoms:       symptoms,
		metrics:        metrics,
		settings:       settings,
		engine:         engine,
		logger:         logger,
		now:            time.Now,
		symptomEvents:  symptoms.Changes(eventBuffer),
		metricEvents:   metrics.Changes(eventBuffer),
		settingsEvents: settings.Changes(eventBuffer),
	}
}

// Run drains the store event streams until ctx is cancelled, then
// flushes whatever is still buffered before returning, so a mutation
// made just before shutdown is persisted, not lost.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.drainBuffered()
			return
		case ev := <-c.symptomEvents:
			c.handleSymptomEvent(ev)
		case ev := <-c.metricEvents:
			c.handleMetricEvent(ev)
		case ev := <-c.settingsEvents:
			c.handleSettingsEvent(ev)
		}
	}
}

// drainBuffered consumes events already sitting in the subscription
// buffers without blocking for new ones.
func (c *Coordinator) drainBuffered() {
	for {
		select {
		case ev := <-c.symptomEvents:
			c.handleSymptomEvent(ev)
		case ev := <-c.metricEvents:
			c.handleMetricEvent(ev)
		case ev := <-c.settingsEvents:
			c.handleSettingsEvent(ev)
		default:
			return
		}
	}
}

func (c *Coordinator) handleSymptomEvent(ev symptomstore.Event) {
	if err := c.local.SaveSymptoms(c.symptoms.GetAll()); err != nil {
		c.logger.Error("persist symptoms failed", "err", err)
	}

	switch ev.Kind {
	case symptomstore.EventAdded, symptomstore.EventUpdated:
		sym, ok := c.symptoms.Get(ev.ID)
		if !ok {
			c.logger.Warn("symptom vanished before it could be queued", "id", ev.ID)
			return
		}
		kind := domain.ChangeAddSymptom
		if ev.Kind == symptomstore.EventUpdated {
			kind = domain.ChangeUpdateSymptom
		}
		c.queueChange(domain.ChangeToPush{Kind: kind, EntityID: ev.ID, Symptom: &sym})
	case symptomstore.EventDeleted:
		c.queueChange(domain.ChangeToPush{
			Kind:         domain.ChangeDeleteSymptom,
			EntityID:     ev.ID,
			DeletionDate: c.now(),
		})
	case symptomstore.EventInitialized, symptomstore.EventAddedFromExternal:
		// Persist only: pulled and rehydrated data never re-enters the
		// change queue.
	}
}

func (c *Coordinator) handleMetricEvent(ev metricstore.Event) {
	if err := c.local.SaveMetrics(c.metrics.GetAll()); err != nil {
		c.logger.Error("persist metrics failed", "err", err)
	}

	switch ev.Kind {
	case metricstore.EventAdded, metricstore.EventUpdated:
		m, ok := c.metrics.Get(ev.ID)
		if !ok {
			c.logger.Warn("metric vanished before it could be queued", "id", ev.ID)
			return
		}
		kind := domain.ChangeAddMetric
		if ev.Kind == metricstore.EventUpdated {
			kind = domain.ChangeUpdateMetric
		}
		c.queueChange(domain.ChangeToPush{Kind: kind, EntityID: ev.ID, Metric: &m})
	case metricstore.EventDeleted:
		c.queueChange(domain.ChangeToPush{
			Kind:         domain.ChangeDeleteMetric,
			EntityID:     ev.ID,
			DeletionDate: c.now(),
		})
	case metricstore.EventInitialized, metricstore.EventAddedFromExternal:
	}
}

func (c *Coordinator) handleSettingsEvent(ev settingsstore.Event) {
	settings := c.settings.Get()
	if err := c.local.SaveSettings(settings); err != nil {
		c.logger.Error("persist settings failed", "err", err)
	}
	if ev.Kind == settingsstore.EventUpdated && settings.LastPulledAt != nil {
		// lastPulledAt rides the same event stream but lives in its own
		// slot; the engine also writes it directly after a successful
		// pull, so this write is a harmless repeat.
		if err := c.local.SaveLastPullDate(*settings.LastPulledAt); err != nil {
			c.logger.Error("persist lastPullDate failed", "err", err)
		}
	}
}

func (c *Coordinator) queueChange(change domain.ChangeToPush) {
	if err := c.engine.QueueChange(change); err != nil {
		c.logger.Error("enqueue change failed", "entityId", change.EntityID, "err", err)
	}
}
