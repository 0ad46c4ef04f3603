//go:build integration

package integrationtest

import (
	"log/slog"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/redmine/redmine"
)

// target is the live Redmine the integration tests run against.
type target struct {
	cfg     *redmine.Config
	project string
	issueID int
}

// liveTarget reads the REDMINE_TEST_* variables and skips the test when
// any is missing. The issue receives notes and attachments, so point it
// at a scratch project.
func liveTarget(t *testing.T) target {
	t.Helper()

	vars := map[string]string{}
	for _, name := range []string{"REDMINE_TEST_URL", "REDMINE_TEST_API_KEY", "REDMINE_TEST_PROJECT", "REDMINE_TEST_ISSUE"} {
		v := os.Getenv(name)
		if v == "" {
			t.Skipf("%s not set", name)
		}
		vars[name] = v
	}

	issueID, err := strconv.Atoi(vars["REDMINE_TEST_ISSUE"])
	require.NoError(t, err, "REDMINE_TEST_ISSUE")

	return target{
		cfg: &redmine.Config{
			URL:       vars["REDMINE_TEST_URL"],
			APIKey:    vars["REDMINE_TEST_API_KEY"],
			RetryWait: 2 * time.Second,
		},
		project: vars["REDMINE_TEST_PROJECT"],
		issueID: issueID,
	}
}

func (tg target) client(t *testing.T) *redmine.Client {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c, err := redmine.NewClient(tg.cfg, redmine.WithLogger(logger))
	require.NoError(t, err)
	return c
}
