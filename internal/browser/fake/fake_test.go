package fake_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peebo/peebo/internal/browser/fake"
	"github.com/peebo/peebo/internal/model"
)

func TestDriverTabLifecycle(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	d, err := fake.NewDriver(fake.DriverConfig{})
	require.NoError(err)

	first := d.OpenTab("https://example.com")
	created, err := d.CreateTab(ctx, "https://acme.com")
	require.NoError(err)
	assert.Equal(created.ID, d.ActiveTabID())

	require.NoError(d.ActivateTab(ctx, first))
	assert.Equal(first, d.ActiveTabID())

	s, err := d.Attach(ctx, created.ID)
	require.NoError(err)
	require.NoError(s.Navigate(ctx, "https://acme.com/jobs"))
	require.NoError(s.Back(ctx))
	loc, err := s.Location(ctx)
	require.NoError(err)
	assert.Equal("https://acme.com", loc)

	require.NoError(d.CloseTab(ctx, created.ID))
	select {
	case <-s.Detached():
	default:
		t.Fatal("session should be detached after closing its tab")
	}
	assert.ErrorIs(s.Navigate(ctx, "https://acme.com"), model.ErrAttachment)

	_, err = d.Attach(ctx, created.ID)
	assert.ErrorIs(err, model.ErrNotFound)
}

func TestSessionEvaluateGoesThroughJSON(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	d, err := fake.NewDriver(fake.DriverConfig{
		Evaluator: func(tabID, expression string) (any, error) {
			return map[string]any{"n": 3, "s": expression}, nil
		},
	})
	require.NoError(err)

	id := d.OpenTab("https://example.com")
	s, err := d.Attach(ctx, id)
	require.NoError(err)

	var out struct {
		N int    `json:"n"`
		S string `json:"s"`
	}
	require.NoError(s.Evaluate(ctx, "1+2", &out))
	assert.Equal(t, 3, out.N)
	assert.Equal(t, "1+2", out.S)
}
