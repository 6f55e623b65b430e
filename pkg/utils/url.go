package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	courseURLPattern   = regexp.MustCompile(`/#/course/([^/?#]+)/class-history`)
	activityURLPattern = regexp.MustCompile(`/activity/([^/?#]+)(?:/|$)`)
)

// CourseIDFromURL extracts the course id from a class-history URL.
// ok is false when the URL does not have that shape.
func CourseIDFromURL(courseURL string) (string, bool) {
	if _, err := url.ParseRequestURI(courseURL); err != nil {
		return "", false
	}
	m := courseURLPattern.FindStringSubmatch(courseURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ActivityIDFromURL extracts an activity id from any URL containing /activity/{id}.
func ActivityIDFromURL(rawURL string) (string, bool) {
	m := activityURLPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ActivityQuestionsURL builds the questions page URL of an activity.
func ActivityQuestionsURL(baseURL, activityID string) string {
	return fmt.Sprintf("%s/#/activity/%s/questions", strings.TrimRight(baseURL, "/"), activityID)
}

// CourseHistoryURL builds the class-history URL of a course.
func CourseHistoryURL(baseURL, courseID string) string {
	return fmt.Sprintf("%s/#/course/%s/class-history", strings.TrimRight(baseURL, "/"), courseID)
}

// ToAbsoluteURL converts a relative URL to an absolute URL given a base URL.
func ToAbsoluteURL(base, relative string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	relURL, err := url.Parse(relative)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(relURL).String(), nil
}
