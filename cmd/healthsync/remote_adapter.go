package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/dtgoitia/healthsync/internal/domain"
	"github.com/dtgoitia/healthsync/internal/remote"
	"github.com/dtgoitia/healthsync/internal/settingsstore"
)

// settingsRemote is a RemoteClient that resolves the endpoint from the
// SettingsStore on every call, so a `config set` or an external edit
// picked up by the settings watcher takes effect mid-run without
// rebuilding the engine.
type settingsRemote struct {
	settings *settingsstore.Store
	logger   *slog.Logger
}

func newSettingsRemote(settings *settingsstore.Store, logger *slog.Logger) *settingsRemote {
	return &settingsRemote{settings: settings, logger: logger}
}

func (r *settingsRemote) client() *remote.Client {
	s := r.settings.Get()
	var url, token string
	if s.APIUrl != nil {
		url = *s.APIUrl
	}
	if s.APIToken != nil {
		token = *s.APIToken
	}
	return remote.NewClient(url, token, r.logger)
}

func (r *settingsRemote) CreateSymptom(ctx context.Context, s domain.Symptom) error {
	return r.client().CreateSymptom(ctx, s)
}

func (r *settingsRemote) UpdateSymptom(ctx context.Context, s domain.Symptom) error {
	return r.client().UpdateSymptom(ctx, s)
}

func (r *settingsRemote) DeleteSymptom(ctx context.Context, id string, deletedAt time.Time) error {
	return r.client().DeleteSymptom(ctx, id, deletedAt)
}

func (r *settingsRemote) CreateMetric(ctx context.Context, m domain.Metric) error {
	return r.client().CreateMetric(ctx, m)
}

func (r *settingsRemote) UpdateMetric(ctx context.Context, m domain.Metric) error {
	return r.client().UpdateMetric(ctx, m)
}

func (r *settingsRemote) DeleteMetric(ctx context.Context, id string, deletedAt time.Time) error {
	return r.client().DeleteMetric(ctx, id, deletedAt)
}

func (r *settingsRemote) ReadAll(ctx context.Context, since time.Time) (remote.ReadAllResult, error) {
	return r.client().ReadAll(ctx, since)
}

func (r *settingsRemote) PushAll(ctx context.Context, symptoms []domain.Symptom, metrics []domain.Metric) (remote.PushAllResult, error) {
	return r.client().PushAll(ctx, symptoms, metrics)
}

func (r *settingsRemote) HealthCheck(ctx context.Context) error {
	return r.client().HealthCheck(ctx)
}
