package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS stories (
    story_id TEXT PRIMARY KEY,
    project_name TEXT NOT NULL,
    narrative_mode TEXT NOT NULL,
    thesis_title TEXT NOT NULL,
    section_count INTEGER DEFAULT 0,
    insight_count INTEGER DEFAULT 0,
    dropped_count INTEGER DEFAULT 0,
    manifest_json TEXT NOT NULL,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS story_insights (
    story_id TEXT NOT NULL REFERENCES stories(story_id),
    position INTEGER NOT NULL,
    insight_id TEXT NOT NULL,
    insight_json TEXT NOT NULL,
    PRIMARY KEY (story_id, position)
);

CREATE INDEX IF NOT EXISTS idx_stories_project ON stories(project_name);
CREATE INDEX IF NOT EXISTS idx_stories_created ON stories(created_at);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
