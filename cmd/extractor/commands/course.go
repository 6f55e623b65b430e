package commands

import (
	"strings"

	"github.com/user/poll-extractor/pkg/utils"
)

// courseURL accepts either a class-history URL or a bare course id.
// Anything else is passed through for the usecase to reject.
func courseURL(baseURL, arg string) string {
	if _, ok := utils.CourseIDFromURL(arg); ok {
		return arg
	}
	if arg == "" || strings.ContainsAny(arg, "/:#?") {
		return arg
	}
	return utils.CourseHistoryURL(baseURL, arg)
}
