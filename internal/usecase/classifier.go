package usecase

import (
	"sort"
	"strconv"
	"strings"

	"github.com/user/poll-extractor/internal/entity"
)

// ClassifiedImage is a candidate accepted as question content.
type ClassifiedImage struct {
	Candidate      entity.QuestionImageCandidate
	QuestionNumber int
	Rule           string
}

// ClassificationRule decides whether a candidate is a question image and
// which number it gets. heuristicMatches counts the images this page has
// already accepted through the storage heuristic.
type ClassificationRule struct {
	Name  string
	Match func(c entity.QuestionImageCandidate, heuristicMatches int) (int, bool)
	// Heuristic rules share the positional counter.
	Heuristic bool
}

// AltTextRule reads the number from alt text such as "Question 3 diagram":
// the token "Question" followed, anywhere later, by an integer token.
// Question numbers start at 1, so a first integer below that is no match.
func AltTextRule() ClassificationRule {
	return ClassificationRule{
		Name: "alt_text",
		Match: func(c entity.QuestionImageCandidate, _ int) (int, bool) {
			words := strings.Fields(c.AltText)
			for i, w := range words {
				if w != "Question" {
					continue
				}
				for _, next := range words[i+1:] {
					n, err := strconv.Atoi(next)
					if err != nil {
						continue
					}
					if n < 1 {
						return 0, false
					}
					return n, true
				}
			}
			return 0, false
		},
	}
}

// StorageRule accepts large images served from the attachment storage host
// and numbers them sequentially among storage matches.
func StorageRule(hostMarker, pathMarker string, minWidth, minHeight int) ClassificationRule {
	return ClassificationRule{
		Name:      "storage",
		Heuristic: true,
		Match: func(c entity.QuestionImageCandidate, heuristicMatches int) (int, bool) {
			if !strings.Contains(c.RawSourceURL, hostMarker) || !strings.Contains(c.RawSourceURL, pathMarker) {
				return 0, false
			}
			if declaredSize(c.Width) <= minWidth || declaredSize(c.Height) <= minHeight {
				return 0, false
			}
			return heuristicMatches + 1, true
		},
	}
}

// DefaultClassificationRules is the ordered rule chain used for activity pages.
func DefaultClassificationRules() []ClassificationRule {
	return []ClassificationRule{
		AltTextRule(),
		StorageRule("reef-prod-storage", "attachments", 200, 100),
	}
}

// declaredSize parses a width/height attribute; anything but plain digits is 0.
func declaredSize(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || strings.ContainsAny(v, "+-") {
		return 0
	}
	return n
}

// Classify applies the rules, in order, to every candidate. The first
// occurrence of a source URL wins. The result is sorted by question number;
// ties keep encounter order.
func Classify(candidates []entity.QuestionImageCandidate, rules []ClassificationRule) []ClassifiedImage {
	seen := make(map[string]bool)
	heuristicMatches := 0
	var out []ClassifiedImage

	for _, c := range candidates {
		if c.RawSourceURL == "" || seen[c.RawSourceURL] {
			continue
		}
		for _, rule := range rules {
			n, ok := rule.Match(c, heuristicMatches)
			if !ok {
				continue
			}
			if rule.Heuristic {
				heuristicMatches++
			}
			seen[c.RawSourceURL] = true
			out = append(out, ClassifiedImage{Candidate: c, QuestionNumber: n, Rule: rule.Name})
			break
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].QuestionNumber < out[j].QuestionNumber
	})
	return out
}
