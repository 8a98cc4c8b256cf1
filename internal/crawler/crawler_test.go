package crawler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/v0xg/clockin/internal/mocks"
)

func TestControls(t *testing.T) {
	ctx := context.Background()
	page := &mocks.MockPage{}
	page.On("Evaluate", ctx, controlsScript, []any{maxControls}).Return(
		`[{"tag":"button","id":"btn-pause-workday","classes":"btn btn-warning","text":"","selector":"#btn-pause-workday"}]`, nil)

	controls, err := Controls(ctx, page)
	require.NoError(t, err)
	require.Len(t, controls, 1)
	assert.Equal(t, "#btn-pause-workday", controls[0].Selector)
	assert.Equal(t, "btn btn-warning", controls[0].Classes)
	page.AssertExpectations(t)
}

func TestControls_Error(t *testing.T) {
	ctx := context.Background()
	page := &mocks.MockPage{}
	page.On("Evaluate", ctx, controlsScript, mock.Anything).Return(nil, errors.New("page closed"))

	_, err := Controls(ctx, page)
	assert.ErrorContains(t, err, "page closed")
}

func TestWaitForControls(t *testing.T) {
	ctx := context.Background()

	t.Run("appear after a poll", func(t *testing.T) {
		page := &mocks.MockPage{}
		page.On("Evaluate", ctx, countScript, mock.Anything).Return(0, nil).Once()
		page.On("Evaluate", ctx, countScript, mock.Anything).Return(4, nil).Once()
		page.On("Sleep", ctx, 200*time.Millisecond).Return(nil).Once()

		n, err := WaitForControls(ctx, page, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		page.AssertExpectations(t)
	})

	t.Run("timeout returns zero without error", func(t *testing.T) {
		page := &mocks.MockPage{}
		page.On("Evaluate", ctx, countScript, mock.Anything).Return(0, nil)

		n, err := WaitForControls(ctx, page, 0)
		require.NoError(t, err)
		assert.Zero(t, n)
		page.AssertNotCalled(t, "Sleep", mock.Anything, mock.Anything)
	})
}
