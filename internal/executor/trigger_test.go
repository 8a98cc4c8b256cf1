package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/v0xg/clockin/internal/browser"
	"github.com/v0xg/clockin/internal/mocks"
	"go.uber.org/zap"
)

const sel = "#btn-start-workday"

func onDescribe(page *mocks.MockPage) {
	page.On("Evaluate", mock.Anything, describeScript, []any{sel}).Return(
		`{"found":true,"tag":"button","rect":{"x":10,"y":20,"width":40,"height":30},"atPoint":"div.tooltip","covered":true}`, nil)
}

func newTrigger(page browser.Page, overlays ...string) *Trigger {
	return NewTrigger(page, overlays, 5*time.Second, 5*time.Second, zap.NewNop())
}

func TestFire_Direct(t *testing.T) {
	page := &mocks.MockPage{}
	onDescribe(page)
	page.On("Click", mock.Anything, sel, 5*time.Second).Return(nil).Once()

	strategy, err := newTrigger(page).Fire(context.Background(), sel)
	require.NoError(t, err)
	assert.Equal(t, StrategyDirect, strategy)
	page.AssertNotCalled(t, "Evaluate", mock.Anything, scriptedClickScript, mock.Anything)
	page.AssertExpectations(t)
}

func TestFire_ScriptedFallbackOnce(t *testing.T) {
	page := &mocks.MockPage{}
	onDescribe(page)
	page.On("Click", mock.Anything, sel, mock.Anything).Return(errors.New("element is covered by div.tooltip")).Once()
	page.On("Evaluate", mock.Anything, scriptedClickScript, []any{sel}).Return(true, nil).Once()

	strategy, err := newTrigger(page).Fire(context.Background(), sel)
	require.NoError(t, err)
	assert.Equal(t, StrategyScripted, strategy)
	page.AssertNumberOfCalls(t, "Click", 1)
	page.AssertExpectations(t)
}

func TestFire_BothFail(t *testing.T) {
	page := &mocks.MockPage{}
	onDescribe(page)
	direct := errors.New("timeout")
	scripted := errors.New("execution context destroyed")
	page.On("Click", mock.Anything, sel, mock.Anything).Return(direct)
	page.On("Evaluate", mock.Anything, scriptedClickScript, []any{sel}).Return(nil, scripted)

	_, err := newTrigger(page).Fire(context.Background(), sel)

	var te *TriggerError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, sel, te.Selector)
	assert.ErrorIs(t, err, direct)
	assert.ErrorIs(t, err, scripted)
	require.NotNil(t, te.Element)
	assert.Equal(t, "div.tooltip", te.Element.AtPoint)
	assert.Equal(t, sel, te.Element.Selector)
	assert.Equal(t, 40.0, te.Element.Rect.Width)
	page.AssertNumberOfCalls(t, "Click", 1)
	page.AssertNumberOfCalls(t, "Evaluate", 2)
}

func TestFire_ScriptedElementGone(t *testing.T) {
	page := &mocks.MockPage{}
	onDescribe(page)
	page.On("Click", mock.Anything, sel, mock.Anything).Return(errors.New("detached"))
	page.On("Evaluate", mock.Anything, scriptedClickScript, []any{sel}).Return(false, nil)

	_, err := newTrigger(page).Fire(context.Background(), sel)
	assert.ErrorIs(t, err, errDetached)
}

func TestFire_CancelledSkipsFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	page := &mocks.MockPage{}
	onDescribe(page)
	page.On("Click", mock.Anything, sel, mock.Anything).Run(func(mock.Arguments) { cancel() }).Return(context.Canceled)

	_, err := newTrigger(page).Fire(ctx, sel)
	assert.ErrorIs(t, err, context.Canceled)
	page.AssertNotCalled(t, "Evaluate", mock.Anything, scriptedClickScript, mock.Anything)
}

func TestFire_WaitsForOverlay(t *testing.T) {
	page := &mocks.MockPage{}
	onDescribe(page)
	onProbe(page, ".blockUI", browser.Probe{Presence: browser.Visible, Tag: "div"})
	onProbe(page, "#loading", absent)
	page.On("WaitHidden", mock.Anything, ".blockUI", 5*time.Second).Return(errors.New("timeout")).Once()
	page.On("Click", mock.Anything, sel, mock.Anything).Return(nil)

	strategy, err := newTrigger(page, ".blockUI", "#loading").Fire(context.Background(), sel)
	require.NoError(t, err)
	assert.Equal(t, StrategyDirect, strategy)
	page.AssertExpectations(t)
	page.AssertNotCalled(t, "WaitHidden", mock.Anything, "#loading", mock.Anything)
}

func TestFire_DescribeFailureIsNotFatal(t *testing.T) {
	page := &mocks.MockPage{}
	page.On("Evaluate", mock.Anything, describeScript, []any{sel}).Return(nil, errors.New("boom"))
	page.On("Click", mock.Anything, sel, mock.Anything).Return(nil)

	_, err := newTrigger(page).Fire(context.Background(), sel)
	assert.NoError(t, err)
}
