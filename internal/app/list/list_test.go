package list_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/peebo/peebo/internal/app/list"
	"github.com/peebo/peebo/internal/log"
	"github.com/peebo/peebo/internal/model"
	"github.com/peebo/peebo/internal/storage/storagemock"
)

func TestNewService(t *testing.T) {
	tests := map[string]struct {
		config list.ServiceConfig
		expErr bool
	}{
		"valid config should create service": {
			config: list.ServiceConfig{
				Repository: &storagemock.MockRepository{},
				Logger:     log.Noop,
			},
			expErr: false,
		},
		"missing repository should fail": {
			config: list.ServiceConfig{
				Logger: log.Noop,
			},
			expErr: true,
		},
		"nil logger should default to noop": {
			config: list.ServiceConfig{
				Repository: &storagemock.MockRepository{},
			},
			expErr: false,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			svc, err := list.NewService(test.config)

			if test.expErr {
				require.Error(err)
				require.Nil(svc)
			} else {
				require.NoError(err)
				require.NotNil(svc)
			}
		})
	}
}

func TestService_Run(t *testing.T) {
	appliedAt := time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)

	applied := model.ApplicationStatusApplied
	rejected := model.ApplicationStatusRejected

	tests := map[string]struct {
		mock      func(m *storagemock.MockRepository)
		req       list.Request
		expResult func() []model.Application
		expErr    bool
	}{
		"list all applications without filter": {
			mock: func(m *storagemock.MockRepository) {
				m.On("ListApplications", mock.Anything).Once().Return([]model.Application{
					{ID: "id1", Company: "Acme", Status: model.ApplicationStatusApplied, AppliedAt: appliedAt},
					{ID: "id2", Company: "Globex", Status: model.ApplicationStatusRejected, AppliedAt: appliedAt},
				}, nil)
			},
			req: list.Request{},
			expResult: func() []model.Application {
				return []model.Application{
					{ID: "id1", Company: "Acme", Status: model.ApplicationStatusApplied, AppliedAt: appliedAt},
					{ID: "id2", Company: "Globex", Status: model.ApplicationStatusRejected, AppliedAt: appliedAt},
				}
			},
			expErr: false,
		},
		"filter by applied status": {
			mock: func(m *storagemock.MockRepository) {
				m.On("ListApplications", mock.Anything).Once().Return([]model.Application{
					{ID: "id1", Company: "Acme", Status: model.ApplicationStatusApplied, AppliedAt: appliedAt},
					{ID: "id2", Company: "Globex", Status: model.ApplicationStatusRejected, AppliedAt: appliedAt},
					{ID: "id3", Company: "Initech", Status: model.ApplicationStatusApplied, AppliedAt: appliedAt},
				}, nil)
			},
			req: list.Request{StatusFilter: &applied},
			expResult: func() []model.Application {
				return []model.Application{
					{ID: "id1", Company: "Acme", Status: model.ApplicationStatusApplied, AppliedAt: appliedAt},
					{ID: "id3", Company: "Initech", Status: model.ApplicationStatusApplied, AppliedAt: appliedAt},
				}
			},
			expErr: false,
		},
		"filter by company": {
			mock: func(m *storagemock.MockRepository) {
				m.On("ListApplications", mock.Anything).Once().Return([]model.Application{
					{ID: "id1", Company: "Acme Inc", Status: model.ApplicationStatusApplied, AppliedAt: appliedAt},
					{ID: "id2", Company: "Globex", Status: model.ApplicationStatusRejected, AppliedAt: appliedAt},
				}, nil)
			},
			req: list.Request{Company: "acme"},
			expResult: func() []model.Application {
				return []model.Application{
					{ID: "id1", Company: "Acme Inc", Status: model.ApplicationStatusApplied, AppliedAt: appliedAt},
				}
			},
			expErr: false,
		},
		"filter with no matches returns empty list": {
			mock: func(m *storagemock.MockRepository) {
				m.On("ListApplications", mock.Anything).Once().Return([]model.Application{
					{ID: "id1", Company: "Acme", Status: model.ApplicationStatusApplied, AppliedAt: appliedAt},
				}, nil)
			},
			req: list.Request{StatusFilter: &rejected},
			expResult: func() []model.Application {
				return []model.Application{}
			},
			expErr: false,
		},
		"repository error should propagate": {
			mock: func(m *storagemock.MockRepository) {
				m.On("ListApplications", mock.Anything).Once().Return(nil, fmt.Errorf("database error"))
			},
			req:       list.Request{},
			expResult: nil,
			expErr:    true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			// Setup
			m := &storagemock.MockRepository{}
			test.mock(m)

			svc, err := list.NewService(list.ServiceConfig{
				Repository: m,
				Logger:     log.Noop,
			})
			require.NoError(err)

			// Execute
			result, err := svc.Run(context.Background(), test.req)

			// Verify
			if test.expErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
				if test.expResult != nil {
					assert.Equal(test.expResult(), result)
				}
			}

			m.AssertExpectations(t)
		})
	}
}

func TestService_RunTasks(t *testing.T) {
	failed := model.TaskStatusFailed

	m := &storagemock.MockRepository{}
	m.On("ListTasks", mock.Anything).Once().Return([]model.Task{
		{ID: "t1", Status: model.TaskStatusCompleted},
		{ID: "t2", Status: model.TaskStatusFailed},
	}, nil)

	svc, err := list.NewService(list.ServiceConfig{Repository: m})
	require.NoError(t, err)

	tasks, err := svc.RunTasks(context.Background(), list.TasksRequest{StatusFilter: &failed})
	require.NoError(t, err)

	assert.Equal(t, []model.Task{{ID: "t2", Status: model.TaskStatusFailed}}, tasks)
	m.AssertExpectations(t)
}
