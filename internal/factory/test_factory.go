package factory

import (
	"time"

	"github.com/rileyL6122428/FriEnds-backend/internal/config"
	"github.com/rileyL6122428/FriEnds-backend/internal/dependencies/mocks"
	"github.com/rileyL6122428/FriEnds-backend/internal/storage/memory"
	"github.com/rileyL6122428/FriEnds-backend/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Memory     *memory.Storage
}

// NewTestApp creates an App on memory storage with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	cfg := config.Default()
	cfg.Events.Log = false

	app := newWithDependencies(store, mockClock, mockRandom, cfg, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Memory:     store,
	}
}
