package store

import (
	"database/sql"
)

const currentSchemaVersion = 1

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS recent_scrobbles (
			track_name TEXT NOT NULL,
			artist_name TEXT NOT NULL,
			video_id TEXT,
			scrobbled_at INTEGER NOT NULL,
			PRIMARY KEY (track_name, artist_name, scrobbled_at)
		);

		CREATE INDEX IF NOT EXISTS idx_recent_scrobbles_at ON recent_scrobbles(scrobbled_at);
		CREATE INDEX IF NOT EXISTS idx_recent_scrobbles_video ON recent_scrobbles(video_id);

		CREATE TABLE IF NOT EXISTS lastfm_session (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			username TEXT NOT NULL,
			session_key TEXT NOT NULL,
			linked_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT OR IGNORE INTO schema_version (version) VALUES (?)
	`, currentSchemaVersion)
	return err
}
