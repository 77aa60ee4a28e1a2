package factory

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/duelgame/internal/dependencies/mocks"
	"github.com/mcoot/duelgame/internal/fanout"
	"github.com/mcoot/duelgame/internal/services/auth"
	"github.com/mcoot/duelgame/internal/storage/memory"
	"github.com/mcoot/duelgame/internal/testutil"
)

// TestSecret signs tokens issued by test apps
const TestSecret = "test-secret"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return newTestApp(nil)
}

// NewTestAppWithRedisBus creates a test App whose events travel through client's pub/sub
func NewTestAppWithRedisBus(client *redis.Client) *TestApp {
	return newTestApp(client)
}

func newTestApp(client *redis.Client) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	app, err := newWithDependencies(store, mockClock, authConfigForTest(), fanout.DefaultConfig(), client, testutil.NopLogger())
	if err != nil {
		// Only a missing secret fails, and authConfigForTest always sets one
		panic(err)
	}

	return &TestApp{
		App:       app,
		MockClock: mockClock,
	}
}

func authConfigForTest() auth.Config {
	cfg := auth.DefaultConfig()
	cfg.Secret = TestSecret
	return cfg
}
