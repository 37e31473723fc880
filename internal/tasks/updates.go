package tasks

import (
	"fmt"

	"github.com/avdunn/tunesync/internal/models"
)

// ProgressUpdate represents a progress event during a sync run.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced consumers
}

// Operation phase enumeration
type Phase int

const (
	LoadPlaylist Phase = iota
	ResolveTracks
	MatchTracks
	CreatePlaylist
	ApplyChanges
	SaveState
)

func (p Phase) String() string {
	switch p {
	case LoadPlaylist:
		return "load_playlist"
	case ResolveTracks:
		return "resolve_tracks"
	case MatchTracks:
		return "match_tracks"
	case CreatePlaylist:
		return "create_playlist"
	case ApplyChanges:
		return "apply_changes"
	case SaveState:
		return "save_state"
	default:
		return ""
	}
}

func loadPlaylistUpdate(pl any, name string, entries int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loaded playlist: %s (%d entries)", name, entries),
		Data:    pl,
	}
}

func resolveTrackUpdate(step, total int, entry string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Resolving: %s", step, total, entry),
	}
}

func matchTrackUpdate(step, total int, track models.LocalTrack) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MatchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, track.Artist, track.Title),
	}
}

func createPlaylistUpdate(pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Created playlist: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func applyBatchUpdate(step, total int, action string, size int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ApplyChanges,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %d tracks...", step, total, action, size),
	}
}

func saveStateUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveState,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Saved sync state for %s", name),
	}
}
