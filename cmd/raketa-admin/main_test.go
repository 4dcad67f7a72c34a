// ABOUTME: Tests for the admin CLI commands against the in-memory store
// ABOUTME: Exports are written to a temp dir and read back with excelize

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/2389/raketa/internal/store"
)

func seed(t *testing.T) (*store.MockStore, *store.Event) {
	t.Helper()
	ctx := context.Background()
	s := store.NewMockStore()

	require.NoError(t, s.UpsertMember(ctx, &store.Member{ID: 1, FullName: "Иван Петров", Phone: "+79001234567"}))
	require.NoError(t, s.UpsertMember(ctx, &store.Member{ID: 2, FullName: "Анна Смирнова", Phone: "+79007654321"}))

	ev := &store.Event{Title: "Летний слёт", Description: "У озера"}
	require.NoError(t, s.CreateEvent(ctx, ev))

	_, _, err := s.InsertApplication(ctx, 1, store.EventTarget(ev.ID))
	require.NoError(t, err)
	_, _, err = s.InsertApplication(ctx, 2, store.AnnouncementTarget())
	require.NoError(t, err)
	return s, ev
}

func readSheet(t *testing.T, path string) (string, [][]string) {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheet := f.GetSheetList()[0]
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return sheet, rows
}

func TestStats(t *testing.T) {
	s, _ := seed(t)
	var out bytes.Buffer

	require.NoError(t, dispatch(context.Background(), s, "stats", "", nil, &out))
	assert.Contains(t, out.String(), "Members:                   2")
	assert.Contains(t, out.String(), "Events:                    1")
	assert.Contains(t, out.String(), "Announcement applications: 1")
}

func TestEvents(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, dispatch(context.Background(), store.NewMockStore(), "events", "", nil, &out))
	assert.Contains(t, out.String(), "No events.")

	s, ev := seed(t)
	out.Reset()
	require.NoError(t, dispatch(context.Background(), s, "events", "", nil, &out))
	assert.Contains(t, out.String(), "TITLE")
	assert.Contains(t, out.String(), ev.Title)
}

func TestExportMembers(t *testing.T) {
	s, _ := seed(t)
	dir := t.TempDir()
	var out bytes.Buffer

	require.NoError(t, dispatch(context.Background(), s, "export-members", dir, nil, &out))
	assert.Contains(t, out.String(), "users.xlsx")

	sheet, rows := readSheet(t, filepath.Join(dir, "users.xlsx"))
	assert.Equal(t, "Пользователи", sheet)
	assert.Len(t, rows, 3)
}

func TestExportApplications(t *testing.T) {
	s, _ := seed(t)
	dir := t.TempDir()

	require.NoError(t, dispatch(context.Background(), s, "export-applications", dir, nil, &bytes.Buffer{}))

	sheet, rows := readSheet(t, filepath.Join(dir, "applications.xlsx"))
	assert.Equal(t, "Заявки", sheet)
	assert.Len(t, rows, 3)
}

func TestExportEvent(t *testing.T) {
	s, ev := seed(t)
	dir := t.TempDir()

	require.NoError(t, dispatch(context.Background(), s, "export-event", dir, []string{"1"}, &bytes.Buffer{}))
	require.Equal(t, int64(1), ev.ID)

	sheet, rows := readSheet(t, filepath.Join(dir, "Летний_слёт_applications.xlsx"))
	assert.Equal(t, "Летний слёт", sheet)
	require.Len(t, rows, 2)
	assert.Contains(t, rows[1], "Иван Петров")
}

func TestExportEvent_NothingToExport(t *testing.T) {
	ctx := context.Background()
	s := store.NewMockStore()
	require.NoError(t, s.CreateEvent(ctx, &store.Event{Title: "Пусто", Description: "-"}))
	dir := t.TempDir()
	var out bytes.Buffer

	require.NoError(t, dispatch(ctx, s, "export-event", dir, []string{"1"}, &out))
	assert.Contains(t, out.String(), "Nothing to export.")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDispatchErrors(t *testing.T) {
	ctx := context.Background()
	s, _ := seed(t)
	var out bytes.Buffer

	err := dispatch(ctx, s, "export-event", t.TempDir(), []string{"42"}, &out)
	assert.EqualError(t, err, "event 42 not found")

	err = dispatch(ctx, s, "export-event", t.TempDir(), nil, &out)
	assert.ErrorContains(t, err, "usage")

	err = dispatch(ctx, s, "export-event", t.TempDir(), []string{"abc"}, &out)
	assert.ErrorContains(t, err, "invalid event id")

	err = dispatch(ctx, s, "frobnicate", "", nil, &out)
	assert.EqualError(t, err, "unknown command: frobnicate")

	s.SetErr(assert.AnError)
	err = dispatch(ctx, s, "stats", "", nil, &out)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestParseFlags(t *testing.T) {
	opts, args, err := parseFlags("export-event", []string{"7", "--out", "/tmp/x", "-c", "bot.toml"})
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, args)
	assert.Equal(t, "/tmp/x", opts.out)
	assert.Equal(t, "bot.toml", opts.config)
	assert.Equal(t, ".env", opts.env)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Лекция", truncate("Лекция", 10))
	assert.Equal(t, "Лек…", truncate("Лекция", 4))
}
