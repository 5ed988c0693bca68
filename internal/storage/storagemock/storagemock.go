// Package storagemock has testify mocks of the storage interfaces.
package storagemock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/peebo/peebo/internal/model"
	"github.com/peebo/peebo/internal/storage"
)

// MockRepository is a mock of storage.Repository.
type MockRepository struct {
	mock.Mock
}

var _ storage.Repository = &MockRepository{}

func (m *MockRepository) CreateApplication(ctx context.Context, a model.Application) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockRepository) GetApplication(ctx context.Context, id string) (*model.Application, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*model.Application)
	return a, args.Error(1)
}

func (m *MockRepository) GetApplicationByJob(ctx context.Context, company, jobURL string) (*model.Application, error) {
	args := m.Called(ctx, company, jobURL)
	a, _ := args.Get(0).(*model.Application)
	return a, args.Error(1)
}

func (m *MockRepository) ListApplications(ctx context.Context) ([]model.Application, error) {
	args := m.Called(ctx)
	apps, _ := args.Get(0).([]model.Application)
	return apps, args.Error(1)
}

func (m *MockRepository) UpdateApplication(ctx context.Context, a model.Application) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockRepository) SaveTask(ctx context.Context, t model.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockRepository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*model.Task)
	return t, args.Error(1)
}

func (m *MockRepository) ListTasks(ctx context.Context) ([]model.Task, error) {
	args := m.Called(ctx)
	tasks, _ := args.Get(0).([]model.Task)
	return tasks, args.Error(1)
}

func (m *MockRepository) MarkEmailProcessed(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockRepository) IsEmailProcessed(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
