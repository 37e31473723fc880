// package formatter renders sync run reports in various formats (plain text, Markdown, CSV)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/avdunn/tunesync/internal/models"
	"github.com/avdunn/tunesync/internal/shared"
)

// ReportToText renders a SyncResult as a plain text report.
func ReportToText(result *models.SyncResult) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", result.Playlist))
	if result.PlaylistID != "" {
		buf.WriteString(fmt.Sprintf("Remote ID: %s\n", result.PlaylistID))
	}

	if result.Skipped {
		buf.WriteString("Status: skipped (unchanged)\n")
		return buf.Bytes(), nil
	}

	buf.WriteString(fmt.Sprintf("Tracks: %d total, %d matched, %d unmatched\n", result.Total, result.Matched, result.UnmatchedCount()))
	buf.WriteString(fmt.Sprintf("Changes: %d added, %d removed\n", result.Added, result.Removed))
	if result.FailedBatches > 0 {
		buf.WriteString(fmt.Sprintf("Failed batches: %d\n", result.FailedBatches))
	}

	if len(result.Unmatched) > 0 {
		buf.WriteString("\nUnmatched tracks:\n")
		for i, track := range result.Unmatched {
			buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, describeTrack(track)))
		}
	}

	return buf.Bytes(), nil
}

// ReportToMarkdown renders a SyncResult as a Markdown report.
func ReportToMarkdown(result *models.SyncResult) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Sync Report: %s\n\n", result.Playlist))

	if result.Skipped {
		buf.WriteString("Playlist unchanged since last sync, nothing to do.\n")
		return buf.Bytes(), nil
	}

	buf.WriteString(fmt.Sprintf("**Tracks**: %d total, %d matched\n", result.Total, result.Matched))
	buf.WriteString(fmt.Sprintf("**Changes**: %d added, %d removed\n", result.Added, result.Removed))
	if result.FailedBatches > 0 {
		buf.WriteString(fmt.Sprintf("**Failed batches**: %d\n", result.FailedBatches))
	}

	if len(result.Unmatched) > 0 {
		buf.WriteString("\n## Unmatched Tracks\n\n")
		for i, track := range result.Unmatched {
			buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, describeTrack(track)))
		}
	}

	return buf.Bytes(), nil
}

// ReportToCSV renders the unmatched track list as CSV with columns:
// Artist, Title, Album, Path. Matched counts live in the summary formats;
// the CSV exists so unmatched tracks can be triaged in a spreadsheet.
func ReportToCSV(result *models.SyncResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Artist", "Title", "Album", "Path"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range result.Unmatched {
		record := []string{track.Artist, track.Title, track.Album, track.SourcePath}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToResultJSON generates a JSON representation of a sync result.
func ToResultJSON(result *models.SyncResult) ([]byte, error) {
	return shared.MarshalJSON(result, true)
}

// StatusToText renders stored playlist states as a plain text table.
func StatusToText(states map[string]models.PlaylistSyncState, names []string) []byte {
	var buf bytes.Buffer

	if len(names) == 0 {
		buf.WriteString("No playlists synced yet.\n")
		return buf.Bytes()
	}

	for _, name := range names {
		st := states[name]
		buf.WriteString(fmt.Sprintf("%s\n", name))
		buf.WriteString(fmt.Sprintf("  Remote ID: %s\n", st.RemotePlaylistID))
		buf.WriteString(fmt.Sprintf("  Last sync: %s\n", st.LastSync.Format("2006-01-02 15:04:05 MST")))
		buf.WriteString(fmt.Sprintf("  Matched: %s\n", matchRatio(st.MatchedCount, st.TotalCount)))
	}

	return buf.Bytes()
}

func matchRatio(matched, total int) string {
	if total == 0 {
		return "0/0"
	}
	pct := float64(matched) / float64(total) * 100
	return strconv.Itoa(matched) + "/" + strconv.Itoa(total) + fmt.Sprintf(" (%.1f%%)", pct)
}

func describeTrack(track models.LocalTrack) string {
	if track.Artist == "" && track.Title == "" {
		return track.SourcePath
	}
	if track.Album != "" {
		return fmt.Sprintf("%s - %s (%s)", track.Artist, track.Title, track.Album)
	}
	return fmt.Sprintf("%s - %s", track.Artist, track.Title)
}
