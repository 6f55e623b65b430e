package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/user/poll-extractor/internal/entity"
	"github.com/user/poll-extractor/internal/repository"
)

// knownCourses maps portal course ids to readable names.
var knownCourses = map[string]string{
	"a6f87d72-bca6-49fe-9497-a1728cf38733": "Gross_Anatomy_2025",
	"67d4f5a8-cbd4-41e0-870c-aa09b361da0c": "Gross_Anatomy_Embryo_Imaging_STL_FA25",
}

var classNumberPattern = regexp.MustCompile(`Class (\d+)`)

// CourseName returns the readable name of a course, or Course_{first 8 chars}.
func CourseName(courseID string) string {
	if name, ok := knownCourses[courseID]; ok {
		return name
	}
	return "Course_" + entity.ShortID(courseID)
}

// ActivityDirName builds Class_{NN}_{Poll|Activity}_{short id} from an
// activity's display name. NN is XX when the name carries no class number.
func ActivityDirName(activityName, activityID string) string {
	label := "Class_XX"
	if m := classNumberPattern.FindStringSubmatch(activityName); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			label = fmt.Sprintf("Class_%02d", n)
		}
	}
	kind := "Activity"
	if strings.Contains(activityName, "Poll") {
		kind = "Poll"
	}
	return fmt.Sprintf("%s_%s_%s", label, kind, entity.ShortID(activityID))
}

// PathMove is one planned rename.
type PathMove struct {
	From string
	To   string
}

// ActivityMove is a planned activity directory rename.
type ActivityMove struct {
	ActivityID   string
	ActivityName string
	Questions    int
	// From is the directory inside the original course directory.
	From string
	To   string
}

// ReorganizationPlan lists every rename a reorganization would perform.
type ReorganizationPlan struct {
	CourseName string
	JSON       PathMove
	CourseDir  *PathMove
	Activities []ActivityMove
}

// Empty reports whether the plan changes nothing.
func (p *ReorganizationPlan) Empty() bool {
	return p.JSON.From == p.JSON.To && p.CourseDir == nil && len(p.Activities) == 0
}

// ResultReorganizer renames a saved course to readable names.
type ResultReorganizer interface {
	Reorganize(ctx context.Context, resultPath string, apply bool) (*ReorganizationPlan, error)
}

// Reorganizer renames a course's result document and image directories to
// readable names and rewrites the paths recorded in the document.
type Reorganizer struct {
	results    repository.ResultRepository
	imagesRoot string
}

// NewReorganizer creates a Reorganizer for images stored under imagesRoot.
func NewReorganizer(results repository.ResultRepository, imagesRoot string) *Reorganizer {
	return &Reorganizer{results: results, imagesRoot: imagesRoot}
}

// Reorganize plans the renames for the document at resultPath and, when
// apply is set, performs them. A dry run never touches the filesystem.
func (r *Reorganizer) Reorganize(ctx context.Context, resultPath string, apply bool) (*ReorganizationPlan, error) {
	result, err := r.results.Load(ctx, resultPath)
	if err != nil {
		return nil, fmt.Errorf("%w: loading %s: %v", entity.ErrReorganization, resultPath, err)
	}
	plan, err := r.plan(resultPath, result)
	if err != nil {
		return nil, err
	}
	if !apply || plan.Empty() {
		return plan, nil
	}
	return plan, r.apply(ctx, plan, result)
}

func (r *Reorganizer) plan(resultPath string, result *entity.CourseResult) (*ReorganizationPlan, error) {
	name := CourseName(result.CourseID)
	timestamp := result.ExtractionTimestamp
	if timestamp == "" {
		timestamp = "unknown"
	}

	plan := &ReorganizationPlan{
		CourseName: name,
		JSON: PathMove{
			From: resultPath,
			To:   filepath.Join(filepath.Dir(resultPath), fmt.Sprintf("%s_Complete_Extraction_%s.json", name, timestamp)),
		},
	}

	oldCourseDir := filepath.Join(r.imagesRoot, "course_"+result.CourseID)
	newCourseDir := filepath.Join(r.imagesRoot, name)
	if info, err := os.Stat(oldCourseDir); err != nil || !info.IsDir() {
		return plan, nil
	}
	plan.CourseDir = &PathMove{From: oldCourseDir, To: newCourseDir}

	entries, err := os.ReadDir(oldCourseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", entity.ErrReorganization, oldCourseDir, err)
	}
	for _, a := range result.Activities {
		short := entity.ShortID(a.ActivityID)
		if short == "" {
			continue
		}
		for _, e := range entries {
			if e.IsDir() && ownsActivityDir(e.Name(), short) {
				plan.Activities = append(plan.Activities, ActivityMove{
					ActivityID:   a.ActivityID,
					ActivityName: a.ActivityName,
					Questions:    a.QuestionsFound,
					From:         filepath.Join(oldCourseDir, e.Name()),
					To:           filepath.Join(newCourseDir, ActivityDirName(a.ActivityName, a.ActivityID)),
				})
				break
			}
		}
	}
	return plan, nil
}

// apply moves the course directory, then each activity directory inside the
// moved course directory, then writes the rewritten document. The first
// failing step aborts the rest; completed moves are not rolled back.
func (r *Reorganizer) apply(ctx context.Context, plan *ReorganizationPlan, result *entity.CourseResult) error {
	var mapping []PathMove

	if plan.CourseDir != nil {
		if err := os.MkdirAll(filepath.Dir(plan.CourseDir.To), 0o755); err != nil {
			return fmt.Errorf("%w: creating %s: %v", entity.ErrReorganization, filepath.Dir(plan.CourseDir.To), err)
		}
		if err := os.Rename(plan.CourseDir.From, plan.CourseDir.To); err != nil {
			return fmt.Errorf("%w: moving course directory: %v", entity.ErrReorganization, err)
		}
		mapping = append(mapping, *plan.CourseDir)
		slog.Info("Moved course directory", "from", plan.CourseDir.From, "to", plan.CourseDir.To)

		for _, move := range plan.Activities {
			current, err := findActivityDir(plan.CourseDir.To, entity.ShortID(move.ActivityID))
			if err != nil {
				return fmt.Errorf("%w: locating activity %s: %v", entity.ErrReorganization, move.ActivityID, err)
			}
			if current == "" {
				slog.Warn("Could not find activity directory", "activity_id", move.ActivityID, "name", move.ActivityName)
				continue
			}
			if current == move.To {
				continue
			}
			if err := os.Rename(current, move.To); err != nil {
				return fmt.Errorf("%w: moving activity directory %s: %v", entity.ErrReorganization, current, err)
			}
			mapping = append(mapping, PathMove{From: current, To: move.To})
			slog.Info("Moved activity directory", "from", current, "to", move.To)
		}
	}

	RewritePaths(result, mapping)

	if err := r.results.WriteTo(ctx, plan.JSON.To, result); err != nil {
		return fmt.Errorf("%w: writing %s: %v", entity.ErrReorganization, plan.JSON.To, err)
	}
	if plan.JSON.From != plan.JSON.To {
		if err := os.Remove(plan.JSON.From); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: removing %s: %v", entity.ErrReorganization, plan.JSON.From, err)
		}
	}
	slog.Info("Reorganization complete", "course", plan.CourseName, "json", plan.JSON.To, "activities", len(plan.Activities))
	return nil
}

// ownsActivityDir reports whether dir belongs to the activity with the given
// short id. Both the download layout and ActivityDirName end in "_<short>".
func ownsActivityDir(dir, short string) bool {
	return strings.HasSuffix(dir, "_"+short)
}

func findActivityDir(courseDir, short string) (string, error) {
	entries, err := os.ReadDir(courseDir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.IsDir() && ownsActivityDir(e.Name(), short) {
			return filepath.Join(courseDir, e.Name()), nil
		}
	}
	return "", nil
}

// RewritePaths rewrites every local_image_path and image_directory in result
// through the ordered directory moves. Each rewrite uses the longest moved
// directory that is a path prefix and repeats, so a file inside a renamed
// activity directory inside a renamed course directory ends up at its final
// location.
func RewritePaths(result *entity.CourseResult, mapping []PathMove) {
	for i := range result.Activities {
		a := &result.Activities[i]
		if a.ImageDirectory != "" {
			a.ImageDirectory = rewritePath(a.ImageDirectory, mapping)
		}
		for j := range a.Questions {
			q := &a.Questions[j]
			if q.LocalImagePath != "" {
				q.LocalImagePath = rewritePath(q.LocalImagePath, mapping)
			}
		}
	}
}

func rewritePath(p string, mapping []PathMove) string {
	p = filepath.Clean(p)
	for range len(mapping) {
		best := -1
		for i, m := range mapping {
			from := filepath.Clean(m.From)
			if p != from && !strings.HasPrefix(p, from+string(filepath.Separator)) {
				continue
			}
			if best < 0 || len(from) > len(filepath.Clean(mapping[best].From)) {
				best = i
			}
		}
		if best < 0 {
			break
		}
		from := filepath.Clean(mapping[best].From)
		next := filepath.Join(mapping[best].To, strings.TrimPrefix(p, from))
		if next == p {
			break
		}
		p = next
	}
	return p
}
