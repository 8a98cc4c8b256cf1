package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/v0xg/clockin/internal/auth"
	"github.com/v0xg/clockin/internal/browser"
	"github.com/v0xg/clockin/internal/config"
	"github.com/v0xg/clockin/internal/executor"
	"github.com/v0xg/clockin/internal/mocks"
	"github.com/v0xg/clockin/internal/schedule"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	monday   = time.Date(2026, 10, 12, 8, 55, 0, 0, time.Local)
	saturday = time.Date(2026, 10, 17, 8, 55, 0, 0, time.Local)

	absent        = browser.Probe{Presence: browser.Absent}
	visibleInput  = browser.Probe{Presence: browser.Visible, Tag: "input"}
	visibleButton = browser.Probe{Presence: browser.Visible, Tag: "button"}
)

const scheduleJSON = `{
	"mon_thu": {"start": "09:00", "break_start": "14:00", "break_end": "15:00", "end": "18:00"},
	"friday":  {"start": "08:00", "break_start": null, "break_end": null, "end": "15:00"}
}`

type fixture struct {
	fs      afero.Fs
	page    *mocks.MockPage
	session *mocks.MockSession
	opened  int
	openErr error
	cfg     *config.Config
}

func newFixture(t *testing.T, holidays string) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "holidays.json", []byte(holidays), 0o644))
	require.NoError(t, afero.WriteFile(fs, "schedule.json", []byte(scheduleJSON), 0o644))

	cfg := config.NewDefaultConfig()
	cfg.Credentials = config.CredentialsConfig{Email: "ana@example.com", Password: "s3cret"}
	cfg.Timing.ConfirmWait = 0
	cfg.Timing.SettleDelay = 0
	cfg.Timing.LoginIdleTimeout = 0

	page := &mocks.MockPage{}
	session := &mocks.MockSession{P: page}
	session.On("Close").Return(nil)
	return &fixture{fs: fs, page: page, session: session, cfg: cfg}
}

func (f *fixture) runner() *Runner {
	return &Runner{
		Config: f.cfg,
		Open: func(context.Context, browser.Options, *zap.Logger) (browser.Session, error) {
			f.opened++
			if f.openErr != nil {
				return nil, f.openErr
			}
			return f.session, nil
		},
		Fs:  f.fs,
		Now: func() time.Time { return monday },
		Log: zap.NewNop(),
	}
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

// signIn stubs a sign-in that succeeds plus the page-wide calls every run
// makes. Registered after the test's specific expectations, its Probe
// catch-all reports everything else absent.
func (f *fixture) signIn(t *testing.T) {
	p := f.page
	p.On("Navigate", mock.Anything, f.cfg.Site.URL).Return(nil)
	p.On("Probe", mock.Anything, "#Username", mock.Anything).Return(visibleInput, nil)
	p.On("Probe", mock.Anything, "#Password", mock.Anything).Return(visibleInput, nil).Once()
	p.On("Probe", mock.Anything, `button[type="submit"]`, mock.Anything).Return(visibleButton, nil)
	p.On("Fill", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	p.On("Click", mock.Anything, `button[type="submit"]`, mock.Anything).Return(nil)
	p.On("WaitIdle", mock.Anything, mock.Anything).Return(nil)
	p.On("Evaluate", mock.Anything, mock.Anything, mock.Anything).Return("null", nil)
	p.On("Sleep", mock.Anything, mock.Anything).Return(nil)
	p.On("Screenshot", mock.Anything, mock.Anything).Return(tinyPNG(t), nil)
	p.On("Info", mock.Anything).Return(browser.Info{URL: "https://worktime.bixpe.com/Home", Title: "Bixpe"}, nil)
	p.On("HTML", mock.Anything).Return("<html><body>dashboard</body></html>", nil)
	p.On("Probe", mock.Anything, mock.Anything, mock.Anything).Return(absent, nil)
}

func TestRun_StartCommit(t *testing.T) {
	f := newFixture(t, `[]`)
	f.page.On("Probe", mock.Anything, "#btn-start-workday", mock.Anything).Return(visibleButton, nil)
	f.page.On("Click", mock.Anything, "#btn-start-workday", mock.Anything).Return(nil).Once()
	f.page.On("Probe", mock.Anything, "div.sweet-alert button.confirm", mock.Anything).Return(visibleButton, nil)
	f.page.On("Click", mock.Anything, "div.sweet-alert button.confirm", mock.Anything).Return(nil).Once()
	f.signIn(t)

	summary, err := f.runner().Run(context.Background(), Request{Action: executor.Start, Mode: executor.Commit})
	require.NoError(t, err)
	assert.False(t, summary.Skipped())
	assert.Equal(t, schedule.ReasonScheduled, summary.Decision.Reason)
	require.NotNil(t, summary.Result)
	assert.Equal(t, executor.Found, summary.Result.Outcome)
	assert.Equal(t, executor.StrategyDirect, summary.Result.Strategy)
	assert.True(t, summary.Result.Confirmation.Confirmed)
	assert.NotEmpty(t, summary.RunID)

	ok, err := afero.Exists(f.fs, summary.Result.Evidence)
	require.NoError(t, err)
	assert.True(t, ok)
	f.session.AssertNumberOfCalls(t, "Close", 1)
	f.page.AssertCalled(t, "Click", mock.Anything, "div.sweet-alert button.confirm", mock.Anything)
	f.page.AssertNotCalled(t, "HTML", mock.Anything)
}

func TestRun_PauseAlreadyPaused(t *testing.T) {
	f := newFixture(t, `[]`)
	f.page.On("Probe", mock.Anything, "#btn-pause-workday", mock.Anything).Return(browser.Probe{Presence: browser.Hidden, Tag: "button"}, nil)
	f.signIn(t)

	summary, err := f.runner().Run(context.Background(), Request{Action: executor.Pause})
	require.NoError(t, err)
	assert.Equal(t, executor.AlreadyInTargetState, summary.Result.Outcome)
	f.page.AssertNotCalled(t, "Click", mock.Anything, "#btn-pause-workday", mock.Anything)
	f.session.AssertNumberOfCalls(t, "Close", 1)
}

func TestRun_EndNotFoundWritesDiagnostics(t *testing.T) {
	f := newFixture(t, `[]`)
	f.signIn(t)

	_, err := f.runner().Run(context.Background(), Request{Action: executor.End})
	assert.ErrorIs(t, err, executor.ErrNotFound)

	for _, pattern := range []string{"end_resolve_*.html", "end_resolve_*[0-9].png", "end_resolve_*_report.json"} {
		matches, err := afero.Glob(f.fs, "diagnostics/"+pattern)
		require.NoError(t, err)
		assert.Len(t, matches, 1, pattern)
	}
	f.session.AssertNumberOfCalls(t, "Close", 1)
}

func TestRun_GateDenials(t *testing.T) {
	tests := []struct {
		name     string
		holidays string
		now      time.Time
		req      Request
		reason   schedule.Reason
	}{
		{"weekend even forced", `[]`, saturday, Request{Action: executor.Start, Force: true}, schedule.ReasonWeekend},
		{"holiday even forced", `["2026-10-12"]`, monday, Request{Action: executor.Start, Force: true}, schedule.ReasonHoliday},
		{"not scheduled", `[]`, monday.AddDate(0, 0, 4), Request{Action: executor.Pause}, schedule.ReasonNotScheduled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.holidays)
			r := f.runner()
			r.Now = func() time.Time { return tt.now }

			summary, err := r.Run(context.Background(), tt.req)
			require.NoError(t, err)
			assert.True(t, summary.Skipped())
			assert.Equal(t, tt.reason, summary.Decision.Reason)
			assert.Zero(t, f.opened)
		})
	}
}

func TestRun_MissingCredentials(t *testing.T) {
	f := newFixture(t, `[]`)
	f.cfg.Credentials = config.CredentialsConfig{}

	_, err := f.runner().Run(context.Background(), Request{Action: executor.Start})
	assert.ErrorIs(t, err, config.ErrMissingCredentials)
	assert.Zero(t, f.opened)
}

func TestRun_BrowserOpenFails(t *testing.T) {
	f := newFixture(t, `[]`)
	f.openErr = errors.New("chrome not found")

	_, err := f.runner().Run(context.Background(), Request{Action: executor.Start})
	assert.ErrorContains(t, err, "chrome not found")
	f.session.AssertNotCalled(t, "Close")
}

func TestRun_LoginFailureClosesBrowser(t *testing.T) {
	f := newFixture(t, `[]`)
	f.page.On("Navigate", mock.Anything, mock.Anything).Return(errors.New("net::ERR_CONNECTION_RESET"))
	f.page.On("Screenshot", mock.Anything, mock.Anything).Return(nil, errors.New("no page"))
	f.page.On("Info", mock.Anything).Return(browser.Info{}, errors.New("no page"))
	f.page.On("HTML", mock.Anything).Return("", errors.New("no page"))
	f.page.On("Evaluate", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("no page"))

	_, err := f.runner().Run(context.Background(), Request{Action: executor.Resume, Force: true})
	assert.ErrorIs(t, err, auth.ErrLoginFailed)
	f.session.AssertNumberOfCalls(t, "Close", 1)

	matches, err := afero.Glob(f.fs, "diagnostics/resume_login_*_report.json")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestRun_MalformedScheduleIsFatal(t *testing.T) {
	f := newFixture(t, `[]`)
	require.NoError(t, afero.WriteFile(f.fs, "schedule.json", []byte(`{"mon_thu": [`), 0o644))

	_, err := f.runner().Run(context.Background(), Request{Action: executor.Start})
	assert.Error(t, err)
	assert.Zero(t, f.opened)
}
