package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/avdunn/tunesync/internal/models"
)

func sampleResult() *models.SyncResult {
	return &models.SyncResult{
		Playlist:   "road-trip",
		PlaylistID: "p42",
		Total:      10,
		Matched:    8,
		Added:      3,
		Removed:    1,
		Unmatched: []models.LocalTrack{
			{Artist: "Obscure Artist", Title: "Deep Cut", Album: "Bootleg", SourcePath: "/music/a.mp3"},
			{SourcePath: "/music/unparseable.mp3"},
		},
	}
}

func TestReportToText(t *testing.T) {
	data, err := ReportToText(sampleResult())
	if err != nil {
		t.Fatalf("ReportToText failed: %v", err)
	}
	output := string(data)

	for _, want := range []string{
		"Playlist: road-trip",
		"Remote ID: p42",
		"10 total, 8 matched, 2 unmatched",
		"3 added, 1 removed",
		"Obscure Artist - Deep Cut (Bootleg)",
		"/music/unparseable.mp3",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("text report missing %q, got:\n%s", want, output)
		}
	}
}

func TestReportToTextSkipped(t *testing.T) {
	data, err := ReportToText(&models.SyncResult{Playlist: "road-trip", PlaylistID: "p42", Skipped: true})
	if err != nil {
		t.Fatalf("ReportToText failed: %v", err)
	}
	if !strings.Contains(string(data), "skipped (unchanged)") {
		t.Errorf("skipped report = %s", data)
	}
}

func TestReportToMarkdown(t *testing.T) {
	data, err := ReportToMarkdown(sampleResult())
	if err != nil {
		t.Fatalf("ReportToMarkdown failed: %v", err)
	}
	output := string(data)

	if !strings.Contains(output, "# Sync Report: road-trip") {
		t.Errorf("Markdown missing title, got:\n%s", output)
	}
	if !strings.Contains(output, "## Unmatched Tracks") {
		t.Errorf("Markdown missing unmatched section, got:\n%s", output)
	}
}

func TestReportToCSV(t *testing.T) {
	data, err := ReportToCSV(sampleResult())
	if err != nil {
		t.Fatalf("ReportToCSV failed: %v", err)
	}
	output := string(data)

	if !strings.Contains(output, "Artist,Title,Album,Path") {
		t.Errorf("CSV missing headers, got: %s", output)
	}
	if !strings.Contains(output, "Obscure Artist,Deep Cut,Bootleg,/music/a.mp3") {
		t.Errorf("CSV missing unmatched row, got: %s", output)
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 3 {
		t.Errorf("CSV has %d lines, want header + 2 rows", len(lines))
	}
}

func TestStatusToText(t *testing.T) {
	states := map[string]models.PlaylistSyncState{
		"road-trip": {
			RemotePlaylistID: "p42",
			LastSync:         time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			MatchedCount:     8,
			TotalCount:       10,
		},
	}

	output := string(StatusToText(states, []string{"road-trip"}))
	for _, want := range []string{"road-trip", "p42", "2025-06-01", "8/10 (80.0%)"} {
		if !strings.Contains(output, want) {
			t.Errorf("status missing %q, got:\n%s", want, output)
		}
	}
}

func TestStatusToTextEmpty(t *testing.T) {
	output := string(StatusToText(nil, nil))
	if !strings.Contains(output, "No playlists synced yet") {
		t.Errorf("empty status = %s", output)
	}
}
