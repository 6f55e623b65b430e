package entity

import "fmt"

// TimestampLayout formats extraction timestamps as YYYYMMDD_HHMMSS.
const TimestampLayout = "20060102_150405"

// CourseResult is the single persisted document of one extraction run.
type CourseResult struct {
	CourseID                 string           `json:"course_id"`
	CourseURL                string           `json:"course_url"`
	ExtractionTimestamp      string           `json:"extraction_timestamp"`
	TotalActivitiesProcessed int              `json:"total_activities_processed"`
	TotalQuestionsExtracted  int              `json:"total_questions_extracted"`
	TotalImagesDownloaded    int              `json:"total_images_downloaded"`
	Activities               []ActivityResult `json:"activities"`
}

// Recount recomputes the totals from the activity list.
func (c *CourseResult) Recount() {
	c.TotalActivitiesProcessed = len(c.Activities)
	c.TotalQuestionsExtracted = 0
	c.TotalImagesDownloaded = 0
	for _, a := range c.Activities {
		c.TotalQuestionsExtracted += a.QuestionsFound
		c.TotalImagesDownloaded += a.ImagesDownloaded
	}
}

// FileName is the document name derived from the course id and timestamp.
func (c *CourseResult) FileName() string {
	return fmt.Sprintf("course_%s_extraction_%s.json", c.CourseID, c.ExtractionTimestamp)
}

// CourseSummary is a listing entry for a saved result document.
type CourseSummary struct {
	Name       string `json:"name"`
	File       string `json:"file"`
	CourseID   string `json:"id"`
	Activities int    `json:"activities"`
	Questions  int    `json:"questions"`
	Images     int    `json:"images"`
	Timestamp  string `json:"timestamp"`
}
