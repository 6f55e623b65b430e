package entity

import "errors"

var (
	// ErrConfiguration covers missing credentials or driver setup. Fatal, never retried.
	ErrConfiguration = errors.New("configuration error")
	// ErrAuthentication means the login could not be confirmed.
	ErrAuthentication = errors.New("authentication failed")
	// ErrScraping is scoped to one activity whose page could not be read or classified.
	ErrScraping = errors.New("scraping failed")
	// ErrDownload is scoped to one image.
	ErrDownload = errors.New("image download failed")
	// ErrReorganization aborts the remaining reorganization steps.
	ErrReorganization = errors.New("reorganization failed")
	// ErrRunInProgress rejects a second background run.
	ErrRunInProgress = errors.New("extraction already in progress")
	// ErrInvalidCourseURL rejects anything that is not a class-history URL.
	ErrInvalidCourseURL = errors.New("invalid course URL")
)

// ErrNotFound reports an unknown course or result document.
var ErrNotFound = errors.New("not found")
