package request

type StartExtractionRequest struct {
	CourseURL string `json:"course_url"`
}

type ReorganizeRequest struct {
	// ResultPath names a document in the output directory; only its base name is used.
	ResultPath string `json:"result_path"`
	Apply      bool   `json:"apply"`
}
