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

var (
	confirmSels = []string{"div.sweet-alert button.confirm", "button.confirm"}
	cancelSels  = []string{"div.sweet-alert button.cancel", "button.cancel"}
	needsDialog = Spec{Candidates: []string{sel}, RequiresConfirmation: true}
)

func newConfirmer(page browser.Page, wait time.Duration) *Confirmer {
	return NewConfirmer(page, confirmSels, cancelSels, wait, 5*time.Second, zap.NewNop())
}

func TestConfirm_NotRequiredNeverQueries(t *testing.T) {
	page := &mocks.MockPage{}

	got, err := newConfirmer(page, time.Second).Resolve(context.Background(), Spec{Candidates: []string{"#p"}}, Commit)
	require.NoError(t, err)
	assert.Equal(t, Confirmation{}, got)
	page.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything, mock.Anything)
	page.AssertNotCalled(t, "Click", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirm_SimulateClicksOnlyCancel(t *testing.T) {
	page := &mocks.MockPage{}
	for _, s := range append(append([]string{}, confirmSels...), cancelSels...) {
		onProbe(page, s, visibleButton)
	}
	page.On("Click", mock.Anything, cancelSels[0], mock.Anything).Return(nil).Once()

	got, err := newConfirmer(page, time.Second).Resolve(context.Background(), needsDialog, Simulate)
	require.NoError(t, err)
	assert.True(t, got.Confirmed)
	assert.Equal(t, cancelSels[0], got.Selector)
	for _, s := range confirmSels {
		page.AssertNotCalled(t, "Click", mock.Anything, s, mock.Anything)
		page.AssertNotCalled(t, "Probe", mock.Anything, s, mock.Anything)
	}
	page.AssertNumberOfCalls(t, "Click", 1)
}

func TestConfirm_CommitClicksConfirm(t *testing.T) {
	page := &mocks.MockPage{}
	onProbe(page, confirmSels[0], absent)
	onProbe(page, confirmSels[1], visibleButton)
	page.On("Click", mock.Anything, confirmSels[1], mock.Anything).Return(nil).Once()

	got, err := newConfirmer(page, time.Second).Resolve(context.Background(), needsDialog, Commit)
	require.NoError(t, err)
	assert.Equal(t, Confirmation{Required: true, Confirmed: true, Selector: confirmSels[1]}, got)
	page.AssertExpectations(t)
}

func TestConfirm_DialogNeverAppears(t *testing.T) {
	page := &mocks.MockPage{}
	onProbe(page, confirmSels[0], absent)
	onProbe(page, confirmSels[1], browser.Probe{Presence: browser.Hidden, Tag: "button"})

	got, err := newConfirmer(page, 0).Resolve(context.Background(), needsDialog, Commit)
	require.NoError(t, err)
	assert.True(t, got.Required)
	assert.False(t, got.Confirmed)
	page.AssertNotCalled(t, "Click", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirm_WaitsForDialog(t *testing.T) {
	page := &mocks.MockPage{}
	onProbe(page, confirmSels[0], absent).Once()
	onProbe(page, confirmSels[1], absent).Once()
	page.On("Sleep", mock.Anything, quickProbe).Return(nil).Once()
	onProbe(page, confirmSels[0], visibleButton).Once()
	page.On("Click", mock.Anything, confirmSels[0], mock.Anything).Return(nil).Once()

	got, err := newConfirmer(page, time.Minute).Resolve(context.Background(), needsDialog, Commit)
	require.NoError(t, err)
	assert.True(t, got.Confirmed)
	page.AssertExpectations(t)
}

func TestConfirm_ClickFallsBackToScript(t *testing.T) {
	page := &mocks.MockPage{}
	onProbe(page, confirmSels[0], visibleButton)
	page.On("Click", mock.Anything, confirmSels[0], mock.Anything).Return(errors.New("intercepted"))
	page.On("Evaluate", mock.Anything, scriptedClickScript, []any{confirmSels[0]}).Return(true, nil).Once()

	got, err := newConfirmer(page, time.Second).Resolve(context.Background(), needsDialog, Commit)
	require.NoError(t, err)
	assert.True(t, got.Confirmed)
}

func TestConfirm_UnclickableDialogFails(t *testing.T) {
	page := &mocks.MockPage{}
	onProbe(page, confirmSels[0], visibleButton)
	page.On("Click", mock.Anything, confirmSels[0], mock.Anything).Return(errors.New("intercepted"))
	page.On("Evaluate", mock.Anything, scriptedClickScript, []any{confirmSels[0]}).Return(nil, errors.New("target closed"))

	_, err := newConfirmer(page, time.Second).Resolve(context.Background(), needsDialog, Commit)
	assert.ErrorContains(t, err, "target closed")
}
