package database

// StoryRecord is a summary row for a stored story manifest.
// The full manifest lives in manifest_json and is materialized on demand.
type StoryRecord struct {
	StoryID       string
	ProjectName   string
	NarrativeMode string
	ThesisTitle   string
	SectionCount  int
	InsightCount  int
	DroppedCount  int
	CreatedAt     *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalStories  int
	TotalProjects int
	TotalInsights int
	LatestStoryID string
}
