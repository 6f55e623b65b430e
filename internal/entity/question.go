package entity

import "fmt"

// QuestionImageCandidate is a raw image element read from an activity page.
// Width and Height are kept as the page declared them; absent values are "0".
type QuestionImageCandidate struct {
	RawSourceURL string
	AltText      string
	Width        string
	Height       string
}

// QuestionRecord is one classified question image. LocalImagePath and
// ImageSizeBytes are only set once the image has been downloaded.
type QuestionRecord struct {
	QuestionNumber   int    `json:"question_number"`
	QuestionText     string `json:"question_text"`
	QuestionImageURL string `json:"question_image_url"`
	ImageAlt         string `json:"image_alt"`
	ImageDimensions  string `json:"image_dimensions"`
	ActivityID       string `json:"activity_id"`
	ActivityName     string `json:"activity_name"`
	LocalImagePath   string `json:"local_image_path,omitempty"`
	ImageSizeBytes   *int64 `json:"image_size_bytes,omitempty"`
}

// Downloaded reports whether the record carries a local image path.
func (q QuestionRecord) Downloaded() bool {
	return q.LocalImagePath != ""
}

// ImageFileName is the file name used for the question's image on disk.
func (q QuestionRecord) ImageFileName() string {
	return fmt.Sprintf("question_%02d.png", q.QuestionNumber)
}
