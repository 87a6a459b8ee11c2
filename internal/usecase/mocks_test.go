package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fixora/analytics/internal/domain"
	"github.com/fixora/analytics/internal/ports"
)

// MockSnapshotProvider is a mock implementation of SnapshotProvider
type MockSnapshotProvider struct {
	mock.Mock
}

func (m *MockSnapshotProvider) GenerateSnapshot(ctx context.Context, spec domain.WindowSpec) (*domain.MetricsSnapshot, error) {
	args := m.Called(ctx, spec)
	if s := args.Get(0); s != nil {
		return s.(*domain.MetricsSnapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSnapshotProvider) Name() string {
	return "mock"
}

// MockMetricsRepository is a mock implementation of MetricsRepository
type MockMetricsRepository struct {
	mock.Mock
}

func (m *MockMetricsRepository) IncidentTotals(ctx context.Context, window domain.Window) (ports.IncidentTotals, error) {
	args := m.Called(ctx, window)
	return args.Get(0).(ports.IncidentTotals), args.Error(1)
}

func (m *MockMetricsRepository) ChangeTotals(ctx context.Context, window domain.Window) (ports.ChangeTotals, error) {
	args := m.Called(ctx, window)
	return args.Get(0).(ports.ChangeTotals), args.Error(1)
}

func (m *MockMetricsRepository) MonthlyActivity(ctx context.Context, window domain.Window) ([]ports.MonthActivity, error) {
	args := m.Called(ctx, window)
	return args.Get(0).([]ports.MonthActivity), args.Error(1)
}

func (m *MockMetricsRepository) PriorityCounts(ctx context.Context, window domain.Window) (map[domain.IncidentPriority]int, error) {
	args := m.Called(ctx, window)
	return args.Get(0).(map[domain.IncidentPriority]int), args.Error(1)
}

func (m *MockMetricsRepository) StatusCounts(ctx context.Context, window domain.Window) (map[domain.IncidentStatus]int, error) {
	args := m.Called(ctx, window)
	return args.Get(0).(map[domain.IncidentStatus]int), args.Error(1)
}

func (m *MockMetricsRepository) ResolutionHoursByPriority(ctx context.Context, window domain.Window) (map[domain.IncidentPriority]float64, error) {
	args := m.Called(ctx, window)
	return args.Get(0).(map[domain.IncidentPriority]float64), args.Error(1)
}

func (m *MockMetricsRepository) SaveIncident(ctx context.Context, incident *domain.Incident) error {
	return m.Called(ctx, incident).Error(0)
}

func (m *MockMetricsRepository) SaveChangeRequest(ctx context.Context, cr *domain.ChangeRequest) error {
	return m.Called(ctx, cr).Error(0)
}

func (m *MockMetricsRepository) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event ports.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockEventPublisher) Close() error {
	return m.Called().Error(0)
}

// MockBroadcaster is a mock implementation of Broadcaster
type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) Broadcast(eventType, queryID string, data interface{}) error {
	return m.Called(eventType, queryID, data).Error(0)
}
