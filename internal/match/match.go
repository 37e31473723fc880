// Package match resolves local tracks to remote track ids. Lookup runs
// against the prebuilt library index first; a live service search is the
// fallback for tracks the library traversal missed.
package match

import (
	"context"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/avdunn/tunesync/internal/index"
	"github.com/avdunn/tunesync/internal/models"
	"github.com/avdunn/tunesync/internal/services"
	"github.com/avdunn/tunesync/internal/shared"
	"github.com/charmbracelet/log"
)

// Scoring weights. A candidate must reach Threshold to be accepted when
// several share a key bucket or when it came from a live search.
const (
	scoreArtistExact    = 50
	scoreArtistContains = 25
	scoreTitleExact     = 40
	scoreTitleContains  = 20
	scoreAlbumExact     = 10
	scoreAlbumContains  = 5

	// Candidates within this edit distance of an exact field match still
	// earn the exact score. Absorbs typos and tag punctuation drift.
	fuzzyDistance = 2
)

// DefaultThreshold is the minimum acceptance score when the config leaves
// it unset.
const DefaultThreshold = 85

// Match records the outcome for one local track. A nil RemoteTrack with a
// nil error means no acceptable candidate exists, which is a normal
// outcome, not a failure.
type Match struct {
	Local  models.LocalTrack
	Remote *models.RemoteTrack
	Score  int
	Method string // "index", "search", or "" when unmatched
}

// Matcher scores remote candidates against local track metadata.
type Matcher struct {
	idx       *index.Index
	svc       services.Service
	threshold int
	logger    *log.Logger
}

// NewMatcher builds a Matcher over idx. svc may be nil to disable the live
// search fallback. threshold <= 0 selects DefaultThreshold.
func NewMatcher(idx *index.Index, svc services.Service, threshold int, logger *log.Logger) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{idx: idx, svc: svc, threshold: threshold, logger: logger}
}

// Find resolves local to a remote track. Index keys are tried in
// precedence order; the first bucket with candidates decides the index
// outcome. When every key misses, or no candidate in the deciding bucket
// clears the threshold, a live search runs as a last resort.
func (m *Matcher) Find(ctx context.Context, local models.LocalTrack) (Match, error) {
	keys := shared.TrackKeys(local.Artist, local.Title, local.Album)

	for _, key := range keys {
		candidates := m.idx.Lookup(key)
		if len(candidates) == 0 {
			continue
		}

		if len(candidates) == 1 {
			return Match{Local: local, Remote: &candidates[0], Score: m.score(local, candidates[0]), Method: "index"}, nil
		}

		if best, score := m.pick(local, candidates); best != nil {
			return Match{Local: local, Remote: best, Score: score, Method: "index"}, nil
		}
		// Ambiguous bucket with no candidate above threshold: stop the
		// key loop rather than fall through to looser keys, which would
		// only produce worse candidates. The live search still gets a
		// shot since it queries a different source.
		break
	}

	return m.searchFallback(ctx, local)
}

// searchFallback queries the live service for tracks the index missed.
func (m *Matcher) searchFallback(ctx context.Context, local models.LocalTrack) (Match, error) {
	if m.svc == nil {
		return Match{Local: local}, nil
	}

	query := fmt.Sprintf("%s %s", local.Artist, local.Title)
	results, err := m.svc.SearchTracks(ctx, query)
	if err != nil {
		return Match{Local: local}, fmt.Errorf("search fallback for %q: %w", local.Title, err)
	}

	for _, candidate := range results {
		if m.searchAcceptable(local, candidate) {
			c := candidate
			m.logger.Debug("matched via live search", "artist", local.Artist, "title", local.Title, "id", c.ID)
			return Match{Local: local, Remote: &c, Score: m.score(local, c), Method: "search"}, nil
		}
	}

	return Match{Local: local}, nil
}

// searchAcceptable guards the fallback path: live results are noisier than
// the index, so both the title and the artist must agree by mutual
// containment on normalized forms.
func (m *Matcher) searchAcceptable(local models.LocalTrack, candidate models.RemoteTrack) bool {
	return mutualContains(local.Title, candidate.Title) && mutualContains(local.Artist, candidate.Artist)
}

func mutualContains(a, b string) bool {
	na, nb := shared.Normalize(a), shared.Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

// pick scores candidates and returns the best one at or above the
// threshold. Ties keep the earliest candidate, so results are stable for
// a given index.
func (m *Matcher) pick(local models.LocalTrack, candidates []models.RemoteTrack) (*models.RemoteTrack, int) {
	var best *models.RemoteTrack
	bestScore := 0

	for i := range candidates {
		score := m.score(local, candidates[i])
		if score > bestScore {
			best = &candidates[i]
			bestScore = score
		}
	}

	if bestScore < m.threshold {
		return nil, 0
	}
	return best, bestScore
}

// score rates how well candidate matches local on artist, title, and album.
func (m *Matcher) score(local models.LocalTrack, candidate models.RemoteTrack) int {
	score := 0
	score += fieldScore(local.Artist, candidate.Artist, scoreArtistExact, scoreArtistContains)
	score += fieldScore(local.Title, candidate.Title, scoreTitleExact, scoreTitleContains)
	score += fieldScore(local.Album, candidate.Album, scoreAlbumExact, scoreAlbumContains)
	return score
}

func fieldScore(local, remote string, exact, contains int) int {
	nl, nr := shared.Normalize(local), shared.Normalize(remote)
	if nl == "" || nr == "" {
		return 0
	}

	switch {
	case nl == nr:
		return exact
	case levenshtein.ComputeDistance(nl, nr) <= fuzzyDistance:
		return exact
	case strings.Contains(nl, nr) || strings.Contains(nr, nl):
		return contains
	default:
		return 0
	}
}
