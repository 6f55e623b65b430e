package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/poll-extractor/internal/adapter/filestore"
	"github.com/user/poll-extractor/internal/adapter/memory"
	"github.com/user/poll-extractor/internal/credentials"
	"github.com/user/poll-extractor/internal/entity"
	"github.com/user/poll-extractor/internal/repository"
	"github.com/user/poll-extractor/pkg/utils"
)

const (
	activityOne   = "a1b2c3d4-0000-4000-8000-000000000001"
	activityTwo   = "b1b2c3d4-0000-4000-8000-000000000002"
	activityThree = "c1b2c3d4-0000-4000-8000-000000000003"
)

var testCreds = credentials.Credentials{Username: "student@example.edu", Password: "hunter2"}

type runnerFixture struct {
	browser  *fakeBrowser
	launcher *fakeLauncher
	fetcher  *fakeFetcher
	history  repository.RunHistoryRepository
	failures repository.FailedDownloadRepository
	results  repository.ResultRepository
	notifier *recordingNotifier
	imageDir string
	runner   CourseRunner
}

func loginPage() *fakePage {
	return &fakePage{Elements: map[string][]fakeNode{
		"#input-email":          {{}},
		"#input-password":       {{}},
		"button[type='submit']": {{OnClick: goTo(testDashboard)}},
	}}
}

func portalPages() map[string]*fakePage {
	questions := func(id string) string { return utils.ActivityQuestionsURL(testPortal, id) }
	return map[string]*fakePage{
		testPortal:    loginPage(),
		testDashboard: {},
		testListing: {Elements: sessionLinks(
			link("Class 1 - Poll", activityURL(activityOne)),
			link("Class 2 - Poll", activityURL(activityTwo)),
			link("Class 3 - Poll", activityURL(activityThree)),
		)},
		questions(activityOne): {Elements: map[string][]fakeNode{"img": {
			img(storageURL+"one-1.png", "", map[string]string{"width": "640", "height": "480"}),
			img(storageURL+"one-2.png", "", map[string]string{"width": "640", "height": "480"}),
		}}},
		questions(activityTwo): {},
		questions(activityThree): {Elements: map[string][]fakeNode{"img": {
			img(storageURL+"three-gone.png", "Question 1", nil),
		}}},
	}
}

func newRunnerFixture(t *testing.T, pages map[string]*fakePage) *runnerFixture {
	t.Helper()
	root := t.TempDir()
	f := &runnerFixture{
		browser: newFakeBrowser(pages),
		fetcher: newFakeFetcher(map[string]fakeResponse{
			storageURL + "one-1.png": {status: 200, body: []byte("1111")},
			storageURL + "one-2.png": {status: 200, body: []byte("22")},
		}),
		history:  memory.NewRunHistoryRepository(),
		failures: memory.NewFailedDownloadRepository(),
		results:  filestore.NewResultRepository(filepath.Join(root, "questions")),
		notifier: &recordingNotifier{},
		imageDir: filepath.Join(root, "images"),
	}
	f.launcher = &fakeLauncher{browser: f.browser}
	f.runner = NewCourseRunner(
		RunnerConfig{PortalBaseURL: testPortal, ImagesDir: f.imageDir},
		f.launcher,
		testAuthenticator(),
		testDiscoverer(20),
		NewExtractor(testPortal, 0),
		NewDownloader(f.fetcher, f.failures),
		NewAssembler(f.results),
		f.history,
		f.notifier,
	)
	return f
}

var resultName = regexp.MustCompile(`^course_c1_extraction_\d{8}_\d{6}\.json$`)

func TestRunCourse(t *testing.T) {
	ctx := context.Background()
	f := newRunnerFixture(t, portalPages())

	result, path, err := f.runner.RunCourse(ctx, "run-1", testListing, testCreds)
	require.NoError(t, err)

	assert.Regexp(t, resultName, filepath.Base(path))
	assert.True(t, f.browser.closed)

	require.Len(t, result.Activities, 2, "activity without questions is skipped")
	first, third := result.Activities[0], result.Activities[1]
	assert.Equal(t, activityOne, first.ActivityID)
	assert.Equal(t, "Class 1 - Poll", first.ActivityName)
	assert.Equal(t, utils.ActivityQuestionsURL(testPortal, activityOne), first.ActivityURL)
	assert.Equal(t, filepath.Join(f.imageDir, "course_c1", "activity_1_a1b2c3d4"), first.ImageDirectory)
	assert.Equal(t, 2, first.QuestionsFound)
	assert.Equal(t, 2, first.ImagesDownloaded)
	assert.FileExists(t, filepath.Join(first.ImageDirectory, "question_02.png"))

	assert.Equal(t, activityThree, third.ActivityID)
	assert.Equal(t, filepath.Join(f.imageDir, "course_c1", "activity_3_c1b2c3d4"), third.ImageDirectory)
	assert.Equal(t, 1, third.QuestionsFound)
	assert.Zero(t, third.ImagesDownloaded)

	assert.Equal(t, 2, result.TotalActivitiesProcessed)
	assert.Equal(t, 3, result.TotalQuestionsExtracted)
	assert.Equal(t, 2, result.TotalImagesDownloaded)

	saved, err := f.results.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, result, saved)

	runs, err := f.history.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "completed", runs[0].Status)
	assert.Equal(t, "c1", runs[0].CourseID)
	assert.Equal(t, 3, runs[0].Questions)
	assert.Equal(t, path, runs[0].OutputPath)
	assert.NotNil(t, runs[0].FinishedAt)

	failed, err := f.failures.FindByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, activityThree, failed[0].ActivityID)

	assert.Equal(t, []float64{10, 20, 40, 60, 90}, f.notifier.progress())
}

func TestRunCourseAuthenticationFailureStillSaves(t *testing.T) {
	ctx := context.Background()
	pages := portalPages()
	pages[testPortal] = &fakePage{
		HTML: htmlPage(`<p class="login-error">Incorrect password</p>`),
		Elements: map[string][]fakeNode{
			"#input-email":          {{}},
			"#input-password":       {{}},
			"button[type='submit']": {{}},
		},
	}
	f := newRunnerFixture(t, pages)

	result, path, err := f.runner.RunCourse(ctx, "run-2", testListing, testCreds)
	require.ErrorIs(t, err, entity.ErrAuthentication)
	assert.Contains(t, err.Error(), "Incorrect password")
	assert.True(t, f.browser.closed)

	require.NotEmpty(t, path)
	assert.FileExists(t, path)
	assert.Empty(t, result.Activities)

	runs, _ := f.history.List(ctx, 1)
	require.Len(t, runs, 1)
	assert.Equal(t, "failed", runs[0].Status)
	assert.Contains(t, runs[0].FailureReason, "Incorrect password")
}

func TestRunCourseBrowserLaunchFailure(t *testing.T) {
	f := newRunnerFixture(t, portalPages())
	f.launcher.err = errors.New("chrome not found")

	_, path, err := f.runner.RunCourse(context.Background(), "run-3", testListing, testCreds)
	require.ErrorIs(t, err, entity.ErrConfiguration)
	assert.FileExists(t, path)
}

func TestRunCourseInvalidURL(t *testing.T) {
	f := newRunnerFixture(t, portalPages())

	_, path, err := f.runner.RunCourse(context.Background(), "run-4", "https://portal.test/#/courses", testCreds)
	require.ErrorIs(t, err, entity.ErrInvalidCourseURL)
	assert.Empty(t, path)
	assert.Zero(t, f.launcher.launches)
}

func TestRunnerDiscover(t *testing.T) {
	f := newRunnerFixture(t, portalPages())

	refs, err := f.runner.Discover(context.Background(), testListing, testCreds)
	require.NoError(t, err)
	assert.Equal(t, []string{activityOne, activityTwo, activityThree}, ids(refs))
	assert.True(t, f.browser.closed)
}

func TestRunnerExtract(t *testing.T) {
	f := newRunnerFixture(t, portalPages())

	records, err := f.runner.Extract(context.Background(), activityOne, testCreds)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Activity a1b2c3d4...", records[0].ActivityName)
	assert.True(t, f.browser.closed)
}
