package lastfm

import "time"

// ScrobbleTrack contains track metadata for scrobbling.
type ScrobbleTrack struct {
	Artist    string
	Track     string
	Album     string
	Timestamp time.Time // backdated submission time, not the original play time
}
