package ytmusic

// HistoryItem is one entry of the listening-history feed, as reported by a
// ytmusicapi-compatible endpoint. The source reports play times only at
// day granularity ("Today", "Yesterday", ...).
type HistoryItem struct {
	VideoID string   `json:"videoId"`
	Title   string   `json:"title"`
	Artists []Artist `json:"artists"`
	Album   *Album   `json:"album"`
	Played  string   `json:"played"`
}

// Artist is a credited artist on a history item.
type Artist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Album is the album a history item belongs to, when known.
type Album struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// CandidatePlay is a history item reduced to the fields the scrobbler
// needs.
type CandidatePlay struct {
	VideoID string
	Title   string
	Artist  string
	Album   string
}

// Recent reports whether the item falls in the "today and yesterday"
// batch window. Fetching both days tolerates timezone skew and history
// entries that land between scheduled runs.
func (it HistoryItem) Recent() bool {
	return it.Played == "Today" || it.Played == "Yesterday"
}

// Candidate converts the item to a candidate play. It returns false when
// required metadata is missing, so the caller can skip and log the item
// without failing the batch.
func (it HistoryItem) Candidate() (CandidatePlay, bool) {
	if it.Title == "" || len(it.Artists) == 0 || it.Artists[0].Name == "" {
		return CandidatePlay{}, false
	}

	play := CandidatePlay{
		VideoID: it.VideoID,
		Title:   it.Title,
		Artist:  it.Artists[0].Name,
	}
	if it.Album != nil {
		play.Album = it.Album.Name
	}
	return play, true
}
