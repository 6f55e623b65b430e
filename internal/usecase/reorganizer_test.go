package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/poll-extractor/internal/adapter/filestore"
	"github.com/user/poll-extractor/internal/entity"
)

const grossAnatomy = "a6f87d72-bca6-49fe-9497-a1728cf38733"

type reorgFixture struct {
	root       string
	imagesRoot string
	jsonPath   string
	reorg      *Reorganizer
}

// newReorgFixture lays out a finished extraction of two activities on disk.
func newReorgFixture(t *testing.T, courseID string) *reorgFixture {
	t.Helper()
	ctx := context.Background()
	root := t.TempDir()
	imagesRoot := filepath.Join(root, "images")
	results := filestore.NewResultRepository(filepath.Join(root, "questions"))

	courseDir := filepath.Join(imagesRoot, "course_"+courseID)
	activities := []struct {
		id, name string
		index    int
	}{
		{id: "f7dcba1f-aaaa-4bbb-8ccc-000000000001", name: "Class 11 - Poll", index: 1},
		{id: "0d9e8f7a-aaaa-4bbb-8ccc-000000000002", name: "Review session", index: 2},
	}

	result := NewCourseResult(courseID, "https://portal.test/#/course/"+courseID+"/class-history")
	result.ExtractionTimestamp = "20250903_101500"
	for _, a := range activities {
		dir := filepath.Join(courseDir, fmt.Sprintf("activity_%d_%s", a.index, entity.ShortID(a.id)))
		require.NoError(t, os.MkdirAll(dir, 0o755))
		var questions []entity.QuestionRecord
		for n := 1; n <= 2; n++ {
			q := entity.QuestionRecord{QuestionNumber: n, ActivityID: a.id, ActivityName: a.name}
			path := filepath.Join(dir, q.ImageFileName())
			require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))
			q.LocalImagePath = path
			questions = append(questions, q)
		}
		questions = append(questions, entity.QuestionRecord{QuestionNumber: 3, ActivityID: a.id})
		result.Activities = append(result.Activities, entity.ActivityResult{
			ActivityID:       a.id,
			ActivityName:     a.name,
			QuestionsFound:   3,
			ImagesDownloaded: 2,
			Questions:        questions,
			ImageDirectory:   dir,
		})
	}
	result.Recount()

	path, err := results.Save(ctx, result.FileName(), result)
	require.NoError(t, err)

	return &reorgFixture{
		root:       root,
		imagesRoot: imagesRoot,
		jsonPath:   path,
		reorg:      NewReorganizer(results, imagesRoot),
	}
}

// snapshot records every file and its contents under root.
func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	require.NoError(t, filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			out[path] = "<dir>"
			return nil
		}
		data, err := os.ReadFile(path)
		out[path] = string(data)
		return err
	}))
	return out
}

func TestCourseName(t *testing.T) {
	assert.Equal(t, "Gross_Anatomy_2025", CourseName(grossAnatomy))
	assert.Equal(t, "Gross_Anatomy_Embryo_Imaging_STL_FA25", CourseName("67d4f5a8-cbd4-41e0-870c-aa09b361da0c"))
	assert.Equal(t, "Course_deadbeef", CourseName("deadbeef-0000-0000-0000-000000000000"))
	assert.Equal(t, "Course_abc", CourseName("abc"))
}

func TestActivityDirName(t *testing.T) {
	testCases := []struct {
		name string
		want string
	}{
		{name: "Class 11 - Poll", want: "Class_11_Poll_f7dcba1f"},
		{name: "Class 3 - Poll", want: "Class_03_Poll_f7dcba1f"},
		{name: "Poll", want: "Class_XX_Poll_f7dcba1f"},
		{name: "Class 4 quiz", want: "Class_04_Activity_f7dcba1f"},
		{name: "", want: "Class_XX_Activity_f7dcba1f"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ActivityDirName(tc.name, "f7dcba1f-aaaa-4bbb"))
		})
	}
}

func TestReorganizeDryRunIsIdempotent(t *testing.T) {
	f := newReorgFixture(t, grossAnatomy)
	before := snapshot(t, f.root)

	var plans []*ReorganizationPlan
	for range 3 {
		plan, err := f.reorg.Reorganize(context.Background(), f.jsonPath, false)
		require.NoError(t, err)
		plans = append(plans, plan)
	}

	if diff := cmp.Diff(before, snapshot(t, f.root)); diff != "" {
		t.Errorf("dry run touched the filesystem (-before +after):\n%s", diff)
	}
	assert.Equal(t, plans[0], plans[2])

	plan := plans[0]
	assert.Equal(t, "Gross_Anatomy_2025", plan.CourseName)
	assert.Equal(t, "Gross_Anatomy_2025_Complete_Extraction_20250903_101500.json", filepath.Base(plan.JSON.To))
	require.NotNil(t, plan.CourseDir)
	assert.Equal(t, filepath.Join(f.imagesRoot, "Gross_Anatomy_2025"), plan.CourseDir.To)
	require.Len(t, plan.Activities, 2)
	assert.Equal(t, "Class_11_Poll_f7dcba1f", filepath.Base(plan.Activities[0].To))
	assert.Equal(t, "Class_XX_Activity_0d9e8f7a", filepath.Base(plan.Activities[1].To))
}

func TestReorganizeApply(t *testing.T) {
	ctx := context.Background()
	f := newReorgFixture(t, "deadbeef-0000-4000-8000-000000000000")

	plan, err := f.reorg.Reorganize(ctx, f.jsonPath, true)
	require.NoError(t, err)

	assert.NoFileExists(t, f.jsonPath)
	assert.NoDirExists(t, filepath.Join(f.imagesRoot, "course_deadbeef-0000-4000-8000-000000000000"))
	assert.Equal(t, "Course_deadbeef", plan.CourseName)

	result, err := filestore.NewResultRepository(filepath.Dir(plan.JSON.To)).Load(ctx, plan.JSON.To)
	require.NoError(t, err)

	newCourseDir := filepath.Join(f.imagesRoot, "Course_deadbeef")
	assert.Equal(t, filepath.Join(newCourseDir, "Class_11_Poll_f7dcba1f"), result.Activities[0].ImageDirectory)
	assert.Equal(t, filepath.Join(newCourseDir, "Class_XX_Activity_0d9e8f7a"), result.Activities[1].ImageDirectory)

	paths := 0
	for _, a := range result.Activities {
		assert.DirExists(t, a.ImageDirectory)
		for _, q := range a.Questions {
			if !q.Downloaded() {
				continue
			}
			paths++
			assert.FileExists(t, q.LocalImagePath)
			assert.Equal(t, a.ImageDirectory, filepath.Dir(q.LocalImagePath))
		}
	}
	assert.Equal(t, 4, paths)
	assert.Empty(t, result.Activities[0].Questions[2].LocalImagePath)
}

func TestReorganizeApplyTwiceIsStable(t *testing.T) {
	ctx := context.Background()
	f := newReorgFixture(t, grossAnatomy)

	first, err := f.reorg.Reorganize(ctx, f.jsonPath, true)
	require.NoError(t, err)

	second, err := f.reorg.Reorganize(ctx, first.JSON.To, true)
	require.NoError(t, err)
	assert.Nil(t, second.CourseDir, "course directory no longer has its opaque name")
	assert.Equal(t, first.JSON.To, second.JSON.To)
	assert.FileExists(t, second.JSON.To)
}

func TestReorganizeWithoutImages(t *testing.T) {
	ctx := context.Background()
	f := newReorgFixture(t, grossAnatomy)
	require.NoError(t, os.RemoveAll(f.imagesRoot))

	plan, err := f.reorg.Reorganize(ctx, f.jsonPath, true)
	require.NoError(t, err)
	assert.Nil(t, plan.CourseDir)
	assert.Empty(t, plan.Activities)
	assert.FileExists(t, plan.JSON.To)
	assert.NoFileExists(t, f.jsonPath)
}

func TestReorganizeMissingDocument(t *testing.T) {
	r := NewReorganizer(filestore.NewResultRepository(t.TempDir()), "images")
	_, err := r.Reorganize(context.Background(), "missing.json", false)
	require.ErrorIs(t, err, entity.ErrReorganization)
}

func TestReorganizeApplyFailureAborts(t *testing.T) {
	ctx := context.Background()
	f := newReorgFixture(t, grossAnatomy)
	// A file where the new course directory should go makes the move fail.
	require.NoError(t, os.WriteFile(filepath.Join(f.imagesRoot, "Gross_Anatomy_2025"), []byte("x"), 0o644))

	_, err := f.reorg.Reorganize(ctx, f.jsonPath, true)
	require.ErrorIs(t, err, entity.ErrReorganization)
	assert.Contains(t, err.Error(), "moving course directory")
	assert.FileExists(t, f.jsonPath)
}

func TestReorganizeMatchesActivityDirByShortIDSuffix(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	imagesRoot := filepath.Join(root, "images")
	results := filestore.NewResultRepository(filepath.Join(root, "questions"))
	courseDir := filepath.Join(imagesRoot, "course_"+grossAnatomy)

	// "activity_1_11" contains "1" but belongs to activity "11".
	result := NewCourseResult(grossAnatomy, "https://portal.test/#/course/"+grossAnatomy+"/class-history")
	result.ExtractionTimestamp = "20250903_101500"
	for _, a := range []struct{ id, dir string }{{id: "1", dir: "activity_2_1"}, {id: "11", dir: "activity_1_11"}} {
		dir := filepath.Join(courseDir, a.dir)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		result.Activities = append(result.Activities, entity.ActivityResult{
			ActivityID:     a.id,
			ActivityName:   "Class 1 - Poll",
			ImageDirectory: dir,
		})
	}
	path, err := results.Save(ctx, result.FileName(), result)
	require.NoError(t, err)

	plan, err := NewReorganizer(results, imagesRoot).Reorganize(ctx, path, true)
	require.NoError(t, err)
	require.Len(t, plan.Activities, 2)
	assert.Equal(t, "activity_2_1", filepath.Base(plan.Activities[0].From))
	assert.Equal(t, "activity_1_11", filepath.Base(plan.Activities[1].From))

	newCourseDir := filepath.Join(imagesRoot, "Gross_Anatomy_2025")
	assert.DirExists(t, filepath.Join(newCourseDir, "Class_01_Poll_1"))
	assert.DirExists(t, filepath.Join(newCourseDir, "Class_01_Poll_11"))
}

func TestRewritePaths(t *testing.T) {
	result := &entity.CourseResult{Activities: []entity.ActivityResult{{
		ImageDirectory: "images/course_c1/activity_1_aaaa",
		Questions: []entity.QuestionRecord{
			{LocalImagePath: "images/course_c1/activity_1_aaaa/question_01.png"},
			{LocalImagePath: "images/course_c10/activity_1_bbbb/question_01.png"},
			{},
		},
	}}}

	RewritePaths(result, []PathMove{
		{From: "images/course_c1", To: "images/Course_c1"},
		{From: "images/Course_c1/activity_1_aaaa", To: "images/Course_c1/Class_01_Poll_aaaa"},
	})

	a := result.Activities[0]
	assert.Equal(t, filepath.FromSlash("images/Course_c1/Class_01_Poll_aaaa"), a.ImageDirectory)
	assert.Equal(t, filepath.FromSlash("images/Course_c1/Class_01_Poll_aaaa/question_01.png"), a.Questions[0].LocalImagePath)
	assert.Equal(t, filepath.FromSlash("images/course_c10/activity_1_bbbb/question_01.png"), a.Questions[1].LocalImagePath,
		"sibling directories sharing a name prefix are untouched")
	assert.Empty(t, a.Questions[2].LocalImagePath)
}

var _ ResultReorganizer = (*Reorganizer)(nil)
