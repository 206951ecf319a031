// Package syncengine is the periodic pull/push loop that reconciles
// the local domain with the remote server. It is the single writer of
// LocalStore's queue slot and the sole caller of RemoteClient; every
// other component only ever talks to the stores.
//
// A ticker drives a strictly-serial tick function, and a singleflight
// group collapses a manually requested sync with one already in
// flight.
package syncengine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dtgoitia/healthsync/internal/changebus"
	"github.com/dtgoitia/healthsync/internal/changequeue"
	"github.com/dtgoitia/healthsync/internal/config"
	"github.com/dtgoitia/healthsync/internal/domain"
	"github.com/dtgoitia/healthsync/internal/localstore"
	"github.com/dtgoitia/healthsync/internal/metricstore"
	"github.com/dtgoitia/healthsync/internal/remote"
	"github.com/dtgoitia/healthsync/internal/settingsstore"
	"github.com/dtgoitia/healthsync/internal/symptomstore"
)

// symptomStore and metricStore are the slices of symptomstore.Store
// and metricstore.Store the engine actually calls, declared here so
// tests can supply lightweight fakes without pulling in the trie.
type symptomStore interface {
	AddPulledData(domain.Symptom)
	Get(id string) (domain.Symptom, bool)
	GetAll() []domain.Symptom
}

type metricStore interface {
	AddPulledData(domain.Metric)
	Get(id string) (domain.Metric, bool)
	GetAll() []domain.Metric
}

var (
	_ symptomStore = (*symptomstore.Store)(nil)
	_ metricStore  = (*metricstore.Store)(nil)
)

// Engine is the pull/reconcile/push loop plus its status machine.
type Engine struct {
	remote   remote.RemoteClient
	local    *localstore.Store
	symptoms symptomStore
	metrics  metricStore
	settings *settingsstore.Store
	queue    *changequeue.Queue
	cfg      config.Config
	logger   *slog.Logger

	statusBus *changebus.Bus[StatusEvent]
	group     singleflight.Group

	// IsOnline reports local network reachability. There is no
	// browser-style navigator.onLine signal on this platform, so the
	// default always reports true; callers running disconnected or in
	// tests can inject their own check.
	IsOnline func() bool
}

// New builds an Engine wired to its collaborators. queue should
// already be rehydrated from localstore.Store.LoadQueue at startup so
// pending changes from the previous run get replayed at the next
// tick.
func New(
	remoteClient remote.RemoteClient,
	local *localstore.Store,
	symptoms symptomStore,
	metrics metricStore,
	settings *settingsstore.Store,
	queue *changequeue.Queue,
	cfg config.Config,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		remote:    remoteClient,
		local:     local,
		symptoms:  symptoms,
		metrics:   metrics,
		settings:  settings,
		queue:     queue,
		cfg:       cfg,
		logger:    logger,
		statusBus: changebus.New[StatusEvent](),
		IsOnline:  func() bool { return true },
	}
}

// StatusChanges returns a channel of status transitions.
func (e *Engine) StatusChanges(buffer int) <-chan StatusEvent {
	return e.statusBus.Subscribe(buffer)
}

func (e *Engine) publishStatus(s Status) {
	e.statusBus.Publish(StatusEvent{Status: s})
}

// isLocalhost reports whether a configured API URL bypasses the
// online check; a local server is reachable regardless of network
// state.
func isLocalhost(apiURL string) bool {
	for _, host := range []string{"localhost", "127.0.0.1", "::1"} {
		if strings.Contains(apiURL, host) {
			return true
		}
	}
	return false
}

func (e *Engine) classifyConnection() connectionStatus {
	settings := e.settings.Get()
	if !settings.Configured() {
		return connMissingConfig
	}
	if !e.IsOnline() && !isLocalhost(*settings.APIUrl) {
		return connOffline
	}
	return connDeviceReady
}

// QueueChange enqueues a pending mutation and persists the queue
// immediately.
// It publishes waitingToSync regardless of merge outcome, since even a
// cancelled-out Add+Delete pair means "there is something to settle
// before the next sync is trivially clean".
func (e *Engine) QueueChange(change domain.ChangeToPush) error {
	e.queue.Enqueue(change)
	if err := e.local.SaveQueue(e.queue.All()); err != nil {
		return err
	}
	e.publishStatus(StatusWaitingToSync)
	return nil
}

// Tick runs one full sync process: pull, reconcile, push.
// A tick never runs concurrently with another; SyncNow and
// syncContinuously both fold into the same singleflight key.
func (e *Engine) Tick(ctx context.Context) error {
	_, err, _ := e.group.Do("tick", func() (any, error) {
		return nil, e.tick(ctx)
	})
	return err
}

// SyncNow is the manual, user-triggered equivalent of a tick; it
// shares the singleflight group with the ticker so a manual request
// arriving mid-tick waits for and reuses the in-flight result rather
// than racing it.
func (e *Engine) SyncNow(ctx context.Context) error {
	return e.Tick(ctx)
}

func (e *Engine) tick(ctx context.Context) error {
	switch e.classifyConnection() {
	case connMissingConfig:
		e.logger.Debug("sync tick skipped: missing config")
		e.publishQueueDependentOfflineStatus()
		return nil
	case connOffline:
		e.logger.Debug("sync tick skipped: offline")
		e.publishQueueDependentOfflineStatus()
		return nil
	}

	e.publishStatus(StatusPulling)
	if err := e.pullAndReconcile(ctx); err != nil {
		e.logger.Warn("pull failed", "err", err)
		e.publishStatus(StatusOnlineButSyncFailed)
		return nil
	}

	e.publishStatus(StatusPushing)
	pushFailed := e.push(ctx)

	if err := e.local.SaveQueue(e.queue.All()); err != nil {
		return err
	}

	if pushFailed {
		e.publishStatus(StatusOnlineButSyncFailed)
		return nil
	}
	if e.queue.Len() == 0 {
		e.publishStatus(StatusOnlineAndSynced)
	}
	return nil
}

func (e *Engine) publishQueueDependentOfflineStatus() {
	if e.queue.Len() > 0 {
		e.publishStatus(StatusOfflinePendingPush)
		return
	}
	e.publishStatus(StatusOffline)
}

// pullAndReconcile pulls from the remote, reconciles the result with
// the queue and then with the domain, and feeds the survivors to
// AddPulledData.
func (e *Engine) pullAndReconcile(ctx context.Context) error {
	settings := e.settings.Get()
	since := time.Time{}
	if settings.LastPulledAt != nil {
		since = settings.LastPulledAt.Add(-e.cfg.PullOverlapSeconds)
	}
	currentPullDate := time.Now()

	result, err := e.remote.ReadAll(ctx, since)
	if err != nil {
		return err
	}
	for _, decodeErr := range result.Errors {
		e.logger.Warn("dropped malformed pulled entity", "err", decodeErr)
	}

	for _, sym := range result.Symptoms {
		if e.reconcileWithQueue(sym.ID, sym.LastModified) && e.reconcileSymptomWithDomain(sym) {
			e.symptoms.AddPulledData(sym)
		}
	}
	for _, m := range result.Metrics {
		if e.reconcileWithQueue(m.ID, m.LastModified) && e.reconcileMetricWithDomain(m) {
			e.metrics.AddPulledData(m)
			if _, ok := e.symptoms.Get(m.SymptomID); !ok {
				e.logger.Warn("pulled metric references unknown symptom", "symptomId", m.SymptomID, "metricId", m.ID)
			}
		}
	}

	e.settings.SetLastPulledAt(currentPullDate)
	return e.local.SaveLastPullDate(currentPullDate)
}

// reconcileWithQueue reports whether the pulled entity should pass
// through to the domain. As a side effect, a queued
// change older than the pulled entity is discarded: stale local
// intent must not shadow fresher remote state.
func (e *Engine) reconcileWithQueue(id string, pulledLastModified time.Time) bool {
	queued, ok := e.queue.Get(id)
	if !ok {
		return true
	}
	if queued.EffectiveDate().After(pulledLastModified) {
		return false // local wins; pulled entity discarded
	}
	e.queue.Dequeue(id)
	return true
}

// reconcileSymptomWithDomain keeps the pulled version iff it is not
// strictly older than the local one.
func (e *Engine) reconcileSymptomWithDomain(pulled domain.Symptom) bool {
	local, ok := e.symptoms.Get(pulled.ID)
	if !ok {
		return true
	}
	return !pulled.LastModified.Before(local.LastModified)
}

func (e *Engine) reconcileMetricWithDomain(pulled domain.Metric) bool {
	local, ok := e.metrics.Get(pulled.ID)
	if !ok {
		return true
	}
	return !pulled.LastModified.Before(local.LastModified)
}

// push drains the queue over the wire. It returns true iff at least
// one change failed and must be retained.
func (e *Engine) push(ctx context.Context) bool {
	failed := false
	for _, change := range e.queue.All() {
		if err := e.pushOne(ctx, change); err != nil {
			e.logger.Warn("push failed, retaining change", "entityId", change.EntityID, "err", err)
			failed = true
			continue
		}
		e.queue.Dequeue(change.EntityID)
	}
	return failed
}

func (e *Engine) pushOne(ctx context.Context, change domain.ChangeToPush) error {
	switch change.Kind {
	case domain.ChangeAddSymptom:
		return e.remote.CreateSymptom(ctx, *change.Symptom)
	case domain.ChangeUpdateSymptom:
		return e.remote.UpdateSymptom(ctx, *change.Symptom)
	case domain.ChangeDeleteSymptom:
		return e.remote.DeleteSymptom(ctx, change.EntityID, change.DeletionDate)
	case domain.ChangeAddMetric:
		return e.remote.CreateMetric(ctx, *change.Metric)
	case domain.ChangeUpdateMetric:
		return e.remote.UpdateMetric(ctx, *change.Metric)
	case domain.ChangeDeleteMetric:
		return e.remote.DeleteMetric(ctx, change.EntityID, change.DeletionDate)
	default:
		return nil
	}
}

// PushAll is the bulk, user-initiated variant: it bypasses the queue
// entirely and pushes every in-domain entity, without mutating
// lastPulledAt.
func (e *Engine) PushAll(ctx context.Context) (remote.PushAllResult, error) {
	return e.remote.PushAll(ctx, e.symptoms.GetAll(), e.metrics.GetAll())
}

// HealthCheck pings the remote server, for an operator surface that
// wants to report reachability independently of a full tick.
func (e *Engine) HealthCheck(ctx context.Context) error {
	return e.remote.HealthCheck(ctx)
}

// syncContinuously arms a repeating tick at cfg.RemoteLoopWait,
// stopping when ctx is cancelled.
func (e *Engine) syncContinuously(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.RemoteLoopWait)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.Tick(ctx); err != nil {
				e.logger.Error("sync tick errored", "err", err)
			}
		}
	}
}

// Run starts the continuous sync loop and blocks until ctx is
// cancelled.
func (e *Engine) Run(ctx context.Context) {
	e.syncContinuously(ctx)
}
