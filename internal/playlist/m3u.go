package playlist

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Playlist is a parsed local M3U file.
type Playlist struct {
	Name    string   // File name without extension
	Path    string   // Absolute or caller-supplied path
	Entries []string // Media file paths in playlist order
	Hash    string   // Content hash of the raw file bytes
}

// Load reads and parses an M3U file. Lines starting with '#' are directives
// or comments and are skipped; blank lines are ignored.
func Load(path string) (*Playlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist: %w", err)
	}

	pl := &Playlist{
		Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path: path,
		Hash: ContentHash(data),
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pl.Entries = append(pl.Entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	return pl, nil
}

// ContentHash digests file bytes so byte-for-byte identical playlists hash
// identically and any single-byte change forces a re-sync.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
