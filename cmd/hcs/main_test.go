package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eviefp/hcs/internal/config"
)

const icsLayout = "20060102T150405Z"

// soon is the first whole minute after now.
func soon(now time.Time) time.Time {
	return now.UTC().Add(time.Minute).Truncate(time.Minute)
}

func testFeed(now time.Time) string {
	midnight := now.UTC().Truncate(24 * time.Hour)
	event := func(uid, summary string, start time.Time) string {
		return "BEGIN:VEVENT\r\n" +
			"UID:" + uid + "\r\n" +
			"DTSTART:" + start.Format(icsLayout) + "\r\n" +
			"SUMMARY:" + summary + "\r\n" +
			"END:VEVENT\r\n"
	}
	return "BEGIN:VCALENDAR\r\nVERSION:2.0\r\n" +
		event("soon@hcs", "Coffee with the team downstairs", soon(now)) +
		event("noon@hcs", "Lunch", midnight.Add(12*time.Hour)) +
		event("tomorrow@hcs", "Dentist", midnight.Add(36*time.Hour)) +
		"END:VCALENDAR\r\n"
}

func setup(t *testing.T, now time.Time) string {
	t.Helper()
	feed := testFeed(now)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, feed)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	path := filepath.Join(dir, "hcs.yaml")
	cfg := fmt.Sprintf(`timezone: UTC
store:
  driver: sqlite
  path: %s
import:
  - name: work
    url: %s/work.ics
`, filepath.Join(dir, "events.db"), srv.URL)
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestImportAndShow(t *testing.T) {
	now := time.Now()
	cfgPath := setup(t, now)

	out, err := run(t, "--config", cfgPath, "import", "work")
	require.NoError(t, err)
	require.Equal(t, "Removed 0 events!\nInserted 3 events!\n", out)

	out, err = run(t, "--config", cfgPath, "import", "work")
	require.NoError(t, err)
	require.Equal(t, "Removed 3 events!\nInserted 3 events!\n", out)

	out, err = run(t, "--config", cfgPath, "today")
	require.NoError(t, err)
	require.Contains(t, out, "12:00 Lunch\n")
	require.NotContains(t, out, "Dentist")

	out, err = run(t, "--config", cfgPath, "tomorrow")
	require.NoError(t, err)
	require.Contains(t, out, "12:00 Dentist\n")
	require.NotContains(t, out, "Lunch")

	next := soon(now).Format("15:04")

	out, err = run(t, "--config", cfgPath, "next")
	require.NoError(t, err)
	require.Equal(t, next+" Coffee with the team downstairs\n", out)

	out, err = run(t, "--config", cfgPath, "next", "--xmobar")
	require.NoError(t, err)
	require.Equal(t, "<fc=#00ed8a>"+next+"</fc> <fc=#00d9ed>Coffee with the ...</fc>\n", out)
}

func TestNextWithEmptyStore(t *testing.T) {
	cfgPath := setup(t, time.Now())

	out, err := run(t, "--config", cfgPath, "next", "--xmobar")
	require.NoError(t, err)
	require.Equal(t, "<fc=#00ed8a>N/A</fc>\n", out)

	out, err = run(t, "--config", cfgPath, "next")
	require.NoError(t, err)
	require.Equal(t, "No events today.\n", out)
}

func TestImportUnknownSource(t *testing.T) {
	cfgPath := setup(t, time.Now())

	out, err := run(t, "--config", cfgPath, "import", "gym")
	require.ErrorIs(t, err, config.ErrImportMissingKey)
	require.Empty(t, out)
}

func TestArgs(t *testing.T) {
	cfgPath := setup(t, time.Now())

	_, err := run(t, "--config", cfgPath, "import")
	require.Error(t, err)

	_, err = run(t, "--config", cfgPath, "today", "extra")
	require.Error(t, err)
}

func TestBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hcs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: postgres\n"), 0o600))

	_, err := run(t, "--config", path, "today")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "postgres"))
}
