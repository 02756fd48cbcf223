package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskward/internal/app"
	"taskward/internal/config"
	"taskward/internal/model"
	"taskward/internal/service"
)

// setupEnv points the configuration at a fresh database file.
func setupEnv(t *testing.T) string {
	t.Helper()
	for _, k := range []string{"TELEGRAM_TOKEN", "LOG_FORMAT", "SWEEP_INTERVAL", "SWEEP_CONCURRENCY", "SWEEP_MAX_CATCHUP", "SUMMARY_TIME", "TIMEZONE"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	dsn := filepath.Join(t.TempDir(), "data", "taskward.db")
	t.Setenv("DATABASE_URL", dsn)
	t.Setenv("LOG_LEVEL", "error")
	return dsn
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand("test")
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))
	err := root.Execute()
	return out.String(), err
}

func TestMigrateCreatesDatabase(t *testing.T) {
	dsn := setupEnv(t)

	out, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "is up to date")

	_, err = os.Stat(dsn)
	assert.NoError(t, err)
}

func TestServeRequiresToken(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "serve")
	assert.ErrorIs(t, err, config.ErrMissingToken)
}

func TestSweepExpiresOverdueEvents(t *testing.T) {
	setupEnv(t)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, err)
	a, err := app.New(cfg, zerolog.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	user, err := a.Users.CreateUser(ctx, "Ann", "")
	require.NoError(t, err)
	start := time.Now().UTC().Add(time.Minute)
	task, err := a.Tasks.CreateTask(ctx, user.ID, service.TaskInput{
		Icon:              "📅",
		Title:             "Stretch",
		Frequency:         model.FrequencyDaily,
		FrequencyInterval: 1,
		StartDate:         start,
		PointsReward:      5,
	})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	at := start.Add(60 * time.Hour).Format(time.RFC3339)
	out, err := execute(t, "sweep", "--at", at)
	require.NoError(t, err)
	assert.Contains(t, out, "expired 2, generated 2, failed 0")

	a, err = app.New(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()
	events, err := a.Events.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, model.StatusExpired, events[0].Status)
	assert.Equal(t, model.StatusExpired, events[1].Status)
	assert.Equal(t, model.StatusScheduled, events[2].Status)

	balance, err := a.Ledger.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestSweepRejectsBadTime(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "sweep", "--at", "yesterday")
	assert.ErrorContains(t, err, "invalid --at")
}
