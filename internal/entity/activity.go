package entity

// ActivityRef identifies one poll session discovered on a course listing page.
// Identity is ActivityID; DisplayName is advisory and only feeds later naming.
type ActivityRef struct {
	ActivityID  string `json:"activity_id"`
	DisplayName string `json:"display_name"`
	SourceURL   string `json:"source_url"`
}

// ShortID returns the first eight characters of the activity identifier.
func (a ActivityRef) ShortID() string {
	return ShortID(a.ActivityID)
}

// ActivityResult holds everything extracted from a single activity.
type ActivityResult struct {
	ActivityID       string           `json:"activity_id"`
	ActivityName     string           `json:"activity_name"`
	ActivityURL      string           `json:"activity_url"`
	QuestionsFound   int              `json:"questions_found"`
	ImagesDownloaded int              `json:"images_downloaded"`
	Questions        []QuestionRecord `json:"questions"`
	ImageDirectory   string           `json:"image_directory"`
}

// ShortID truncates an opaque portal identifier to its first eight characters.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
