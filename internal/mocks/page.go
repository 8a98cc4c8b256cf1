package mocks

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/mock"
	"github.com/v0xg/clockin/internal/browser"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MockPage mocks browser.Page.
type MockPage struct {
	mock.Mock
}

var _ browser.Page = (*MockPage)(nil)

func (m *MockPage) Navigate(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *MockPage) Probe(ctx context.Context, selector string, timeout time.Duration) (browser.Probe, error) {
	args := m.Called(ctx, selector, timeout)
	return args.Get(0).(browser.Probe), args.Error(1)
}

func (m *MockPage) Fill(ctx context.Context, selector, value string) error {
	args := m.Called(ctx, selector, value)
	return args.Error(0)
}

func (m *MockPage) Click(ctx context.Context, selector string, timeout time.Duration) error {
	args := m.Called(ctx, selector, timeout)
	return args.Error(0)
}

func (m *MockPage) PressEnter(ctx context.Context, selector string) error {
	args := m.Called(ctx, selector)
	return args.Error(0)
}

// Evaluate decodes the first return value into out when it is a JSON
// string or a value that can be marshalled.
func (m *MockPage) Evaluate(ctx context.Context, fn string, out any, args ...any) error {
	ret := m.Called(ctx, fn, args)
	if out != nil && ret.Get(0) != nil {
		var raw []byte
		switch v := ret.Get(0).(type) {
		case string:
			raw = []byte(v)
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return err
			}
			raw = b
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return err
		}
	}
	return ret.Error(1)
}

func (m *MockPage) WaitHidden(ctx context.Context, selector string, timeout time.Duration) error {
	args := m.Called(ctx, selector, timeout)
	return args.Error(0)
}

func (m *MockPage) WaitIdle(ctx context.Context, timeout time.Duration) error {
	args := m.Called(ctx, timeout)
	return args.Error(0)
}

func (m *MockPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	args := m.Called(ctx, fullPage)
	var data []byte
	if v := args.Get(0); v != nil {
		data = v.([]byte)
	}
	return data, args.Error(1)
}

func (m *MockPage) HTML(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPage) Info(ctx context.Context) (browser.Info, error) {
	args := m.Called(ctx)
	return args.Get(0).(browser.Info), args.Error(1)
}

func (m *MockPage) Sleep(ctx context.Context, d time.Duration) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

// MockSession mocks browser.Session around a page.
type MockSession struct {
	mock.Mock
	P browser.Page
}

func (m *MockSession) Page() browser.Page {
	return m.P
}

func (m *MockSession) Close() error {
	args := m.Called()
	return args.Error(0)
}
