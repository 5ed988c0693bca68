package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/peebo/peebo/internal/model"
)

func TestTaskStatusIsTerminal(t *testing.T) {
	tests := map[string]struct {
		status model.TaskStatus
		exp    bool
	}{
		"Running should not be terminal": {status: model.TaskStatusRunning, exp: false},
		"Completed should be terminal":   {status: model.TaskStatusCompleted, exp: true},
		"Failed should be terminal":      {status: model.TaskStatusFailed, exp: true},
		"Cancelled should be terminal":   {status: model.TaskStatusCancelled, exp: true},
		"Unknown status is not terminal": {status: model.TaskStatus("whatever"), exp: false},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, test.status.IsTerminal())
		})
	}
}

func TestTaskValidate(t *testing.T) {
	tests := map[string]struct {
		task   model.Task
		expErr bool
	}{
		"A valid task should not fail": {
			task:   model.Task{ID: "t1", JobURL: "https://jobs.ashbyhq.com/acme/1", Status: model.TaskStatusRunning, Progress: 10},
			expErr: false,
		},
		"Missing id should fail": {
			task:   model.Task{JobURL: "https://example.com", Status: model.TaskStatusRunning},
			expErr: true,
		},
		"Missing job url should fail": {
			task:   model.Task{ID: "t1", Status: model.TaskStatusRunning},
			expErr: true,
		},
		"Unknown status should fail": {
			task:   model.Task{ID: "t1", JobURL: "https://example.com", Status: "paused"},
			expErr: true,
		},
		"Progress out of range should fail": {
			task:   model.Task{ID: "t1", JobURL: "https://example.com", Status: model.TaskStatusRunning, Progress: 101},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			err := test.task.Validate()
			if test.expErr {
				assert.ErrorIs(t, err, model.ErrNotValid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClampProgress(t *testing.T) {
	assert.Equal(t, 0, model.ClampProgress(-5))
	assert.Equal(t, 42, model.ClampProgress(42))
	assert.Equal(t, 100, model.ClampProgress(250))
}
