package main

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/budgify/pkg/api"
)

func TestParseMonth(t *testing.T) {
	p, err := parseMonth("2025-02")
	require.NoError(t, err)
	assert.Equal(t, api.Period{Year: 2025, Month: 2}, p)

	for _, bad := range []string{"2025", "2025-13", "02-2025", ""} {
		_, err := parseMonth(bad)
		assert.Error(t, err, bad)
	}
}

func TestRelevant(t *testing.T) {
	tests := []struct {
		ev   fsnotify.Event
		want bool
	}{
		{fsnotify.Event{Name: "/s/tdvisa-jan.csv", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "/s/AMEX.XLSX", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/s/old.xls", Op: fsnotify.Rename}, true},
		{fsnotify.Event{Name: "/s/tdvisa.csv", Op: fsnotify.Remove}, false},
		{fsnotify.Event{Name: "/s/tdvisa.csv", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/s/.tdvisa.csv.swp", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "/s/notes.txt", Op: fsnotify.Create}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, relevant(tt.ev), tt.ev.String())
	}
}

func TestDebounce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan fsnotify.Event)
	errs := make(chan error)

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- debounce(ctx, events, errs, 30*time.Millisecond, nil, func() { calls.Add(1) })
	}()

	for range 3 {
		events <- fsnotify.Event{Name: "td.csv", Op: fsnotify.Write}
	}
	events <- fsnotify.Event{Name: "notes.txt", Op: fsnotify.Write}
	errs <- assert.AnError

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("debounce did not return after cancel")
	}
}

func TestDebounce_ClosedEvents(t *testing.T) {
	events := make(chan fsnotify.Event)
	close(events)
	assert.NoError(t, debounce(context.Background(), events, make(chan error), time.Millisecond, nil, func() {}))
}

func TestPluginsCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"plugins"})
	require.NoError(t, cmd.Execute())

	for _, name := range []string{"tdvisa", "hometrust", "amex", "canadiantire", "csv", "sheets", "sqlite", "postgres"} {
		assert.Contains(t, out.String(), name)
	}
	assert.Contains(t, out.String(), "spreadsheets")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version", "--config", "/does/not/exist.yaml"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "budgify")
}
