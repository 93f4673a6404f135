package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/storymint/storymint/internal/model"
)

// SaveStory persists a manifest along with the insights it was built from.
// Saving the same story_id again replaces both the manifest and its insights.
func (db *DB) SaveStory(m *model.Manifest, insights []model.Insight) error {
	manifestJSON, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}

	dropped := 0
	if s, ok := m.Metadata["dropped_insights"]; ok {
		if n, err := strconv.Atoi(s); err == nil {
			dropped = n
		}
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Clear old insights before replacing the story row; the foreign key
	// forbids replacing a parent that still has children.
	if _, err := tx.Exec(
		"DELETE FROM story_insights WHERE story_id = ?", m.StoryID,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO stories
		(story_id, project_name, narrative_mode, thesis_title,
		section_count, insight_count, dropped_count, manifest_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.StoryID, m.ProjectName, string(m.NarrativeMode), m.Thesis.Title,
		len(m.Sections), len(insights), dropped, string(manifestJSON),
	); err != nil {
		return err
	}

	for i, in := range insights {
		insightJSON, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling insight %s: %w", in.ID, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO story_insights (story_id, position, insight_id, insight_json)
			VALUES (?, ?, ?, ?)`,
			m.StoryID, i, in.ID, string(insightJSON),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetStory returns the stored manifest for a story ID, or nil if not found.
func (db *DB) GetStory(storyID string) (*model.Manifest, error) {
	row := db.conn.QueryRow(
		"SELECT manifest_json FROM stories WHERE story_id = ?", storyID,
	)

	var manifestJSON string
	if err := row.Scan(&manifestJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	var m model.Manifest
	if err := json.Unmarshal([]byte(manifestJSON), &m); err != nil {
		return nil, fmt.Errorf("unmarshaling manifest %s: %w", storyID, err)
	}
	return &m, nil
}

// GetStoryInsights returns the insights a story was built from, in input order.
func (db *DB) GetStoryInsights(storyID string) ([]model.Insight, error) {
	rows, err := db.conn.Query(
		`SELECT insight_json FROM story_insights
		WHERE story_id = ? ORDER BY position`, storyID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var insights []model.Insight
	for rows.Next() {
		var insightJSON string
		if err := rows.Scan(&insightJSON); err != nil {
			return nil, err
		}
		var in model.Insight
		if err := json.Unmarshal([]byte(insightJSON), &in); err != nil {
			return nil, fmt.Errorf("unmarshaling insight: %w", err)
		}
		insights = append(insights, in)
	}
	return insights, rows.Err()
}

// ListStories returns story summaries ordered newest first.
// A limit of 0 or less returns all stories.
func (db *DB) ListStories(limit int) ([]StoryRecord, error) {
	query := `SELECT story_id, project_name, narrative_mode, thesis_title,
	section_count, insight_count, dropped_count, created_at
	FROM stories ORDER BY created_at DESC, story_id DESC`

	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = db.conn.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = db.conn.Query(query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []StoryRecord
	for rows.Next() {
		var r StoryRecord
		if err := rows.Scan(&r.StoryID, &r.ProjectName, &r.NarrativeMode, &r.ThesisTitle,
			&r.SectionCount, &r.InsightCount, &r.DroppedCount, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// DeleteStory removes a story and its stored insights.
func (db *DB) DeleteStory(storyID string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"DELETE FROM story_insights WHERE story_id = ?", storyID,
	); err != nil {
		return err
	}

	result, err := tx.Exec("DELETE FROM stories WHERE story_id = ?", storyID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("story not found: %s", storyID)
	}

	return tx.Commit()
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM stories", &s.TotalStories},
		{"SELECT COUNT(DISTINCT project_name) FROM stories", &s.TotalProjects},
		{"SELECT COUNT(*) FROM story_insights", &s.TotalInsights},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	row := db.conn.QueryRow(
		"SELECT story_id FROM stories ORDER BY created_at DESC, story_id DESC LIMIT 1",
	)
	if err := row.Scan(&s.LatestStoryID); err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	return s, nil
}
