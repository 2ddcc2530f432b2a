// Package normalize canonicalizes YouTube Music metadata so the same
// logical song matches across uploads and re-fetches.
package normalize

import "strings"

// topicSuffix marks auto-generated artist channels on YouTube Music.
const topicSuffix = " - Topic"

// titleMarkers are trailing video markers stripped from track titles,
// matched case-insensitively.
var titleMarkers = []string{
	"(official music video)",
	"(official video)",
	"(official audio)",
	"(lyric video)",
	"(lyrics)",
	"(audio)",
	"(visualizer)",
	"[official music video]",
	"[official video]",
	"[official audio]",
	"[lyric video]",
	"[lyrics]",
	"[audio]",
	"[visualizer]",
}

// Track returns the canonical (title, artist) pair for a raw history entry.
// It never fails: input that matches no pattern passes through with only
// whitespace normalization. Applying Track to its own output is a no-op.
func Track(title, artist string) (string, string) {
	return cleanTitle(title), cleanArtist(artist)
}

// Markers returns the trailing title markers that Track removes.
func Markers() []string {
	out := make([]string, len(titleMarkers))
	copy(out, titleMarkers)
	return out
}

func cleanArtist(artist string) string {
	artist = collapse(artist)
	for strings.HasSuffix(artist, topicSuffix) {
		artist = strings.TrimSpace(strings.TrimSuffix(artist, topicSuffix))
	}
	return artist
}

func cleanTitle(title string) string {
	title = collapse(title)
	for {
		stripped := false
		for _, marker := range titleMarkers {
			if len(title) < len(marker) {
				continue
			}
			tail := title[len(title)-len(marker):]
			if strings.EqualFold(tail, marker) {
				title = strings.TrimSpace(title[:len(title)-len(marker)])
				stripped = true
				break
			}
		}
		if !stripped {
			return title
		}
	}
}

// collapse trims the string and squeezes whitespace runs to single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
