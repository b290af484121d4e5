package application

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PartTimeJob-backend/internal/apperror"
	"PartTimeJob-backend/internal/database"
	"PartTimeJob-backend/internal/files"
	"PartTimeJob-backend/internal/identity"
	"PartTimeJob-backend/internal/model"
	"PartTimeJob-backend/internal/workflow"
)

var (
	testDB *database.DBinstanceStruct
	svc    *Service
)

func TestMain(m *testing.M) {
	teardown, db, err := database.GetTestDB()
	if err != nil {
		os.Exit(1)
	}
	testDB = db
	svc = NewService(testDB.DB, files.NewResolver())

	code := m.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if teardown != nil {
		_ = teardown(ctx)
	}
	os.Exit(code)
}

var (
	employer1 = func() identity.Identity { return identity.New(database.TestEmployer1.ID, model.RoleEmployer) }
	employer2 = func() identity.Identity { return identity.New(database.TestEmployer2.ID, model.RoleEmployer) }
)

func openPost(t *testing.T) model.JobPost {
	t.Helper()
	post, err := database.NewTestJobPost(testDB.DB, database.TestEmployer1.ID, database.TestCompany1.ID, model.JobPostPublished, nil)
	require.NoError(t, err)
	return post
}

// applicantWithCV creates a student with one CV file and no profile
func applicantWithCV(t *testing.T) (identity.Identity, model.File) {
	t.Helper()
	user, err := database.NewTestUser(testDB.DB, "applicant", model.RoleStudent)
	require.NoError(t, err)
	cv, err := database.NewTestFile(testDB.DB, user.ID)
	require.NoError(t, err)
	return identity.New(user.ID, model.RoleStudent), cv
}

func historyOf(t *testing.T, id uuid.UUID) []model.ApplicationHistory {
	t.Helper()
	var h []model.ApplicationHistory
	require.NoError(t, testDB.Where("application_id = ?", id).Order("changed_at, seq").Find(&h).Error)
	return h
}

func hi() *string {
	s := "hi"
	return &s
}

func TestSubmitExpiredPosting(t *testing.T) {
	applicant, cv := applicantWithCV(t)

	_, err := svc.Submit(context.Background(), applicant, database.TestJobPostExpired.ID, &cv.ID, hi())

	assert.ErrorIs(t, err, apperror.ErrExpired)
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, model.JobPostExpired.String(), appErr.State)
}

func TestSubmitDraftPosting(t *testing.T) {
	applicant, cv := applicantWithCV(t)

	_, err := svc.Submit(context.Background(), applicant, database.TestJobPostDraft.ID, &cv.ID, nil)
	assert.ErrorIs(t, err, apperror.ErrExpired)
}

func TestSubmitUnknownPosting(t *testing.T) {
	applicant, cv := applicantWithCV(t)

	_, err := svc.Submit(context.Background(), applicant, uuid.New(), &cv.ID, nil)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	post := openPost(t)
	applicant, cv := applicantWithCV(t)

	app, err := svc.Submit(ctx, applicant, post.ID, &cv.ID, hi())
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationApplied, app.Status)
	require.Len(t, app.History, 1)
	assert.Equal(t, model.NoteSubmitted, app.History[0].Note)

	app, err = svc.TransitionByEmployer(ctx, employer1(), app.ID, model.ApplicationInterview, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationInterview, app.Status)

	h := historyOf(t, app.ID)
	require.Len(t, h, 2)
	assert.Equal(t, model.ApplicationApplied, h[0].OldStatus)
	assert.Equal(t, model.ApplicationApplied, h[0].NewStatus)
	assert.Equal(t, model.ApplicationApplied, h[1].OldStatus)
	assert.Equal(t, model.ApplicationInterview, h[1].NewStatus)
	assert.Equal(t, "Invited to interview", h[1].Note)
	assert.Equal(t, database.TestEmployer1.ID, h[1].ChangedBy)

	app, err = svc.Withdraw(ctx, applicant, app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationWithdrawn, app.Status)

	h = historyOf(t, app.ID)
	require.Len(t, h, 3)
	assert.Equal(t, model.ApplicationInterview, h[2].OldStatus)
	assert.Equal(t, model.ApplicationWithdrawn, h[2].NewStatus)
	assert.Equal(t, model.NoteWithdrawn, h[2].Note)

	_, err = svc.Withdraw(ctx, applicant, app.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	assert.Len(t, historyOf(t, app.ID), 3)
}

func TestSubmitTwiceFailsWithAlreadyApplied(t *testing.T) {
	ctx := context.Background()
	post := openPost(t)
	applicant, cv := applicantWithCV(t)

	_, err := svc.Submit(ctx, applicant, post.ID, &cv.ID, nil)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, applicant, post.ID, &cv.ID, nil)
	assert.ErrorIs(t, err, apperror.ErrAlreadyApplied)

	var count int64
	testDB.Model(&model.Application{}).Where("job_post_id = ? AND applicant_id = ?", post.ID, applicant.UserID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestConcurrentSubmitYieldsOneApplication(t *testing.T) {
	post := openPost(t)
	applicant, cv := applicantWithCV(t)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		dupes   int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), applicant, post.ID, &cv.ID, nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case apperror.KindOf(err) == apperror.KindAlreadyApplied:
				dupes++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, workers-1, dupes)

	var histories int64
	testDB.Model(&model.ApplicationHistory{}).
		Joins("JOIN applications ON applications.id = application_histories.application_id").
		Where("applications.job_post_id = ?", post.ID).
		Count(&histories)
	assert.Equal(t, int64(1), histories)
}

func TestResubmitAfterWithdraw(t *testing.T) {
	ctx := context.Background()
	post := openPost(t)
	applicant, cv := applicantWithCV(t)

	first, err := svc.Submit(ctx, applicant, post.ID, &cv.ID, nil)
	require.NoError(t, err)
	_, err = svc.Withdraw(ctx, applicant, first.ID)
	require.NoError(t, err)

	second, err := svc.Submit(ctx, applicant, post.ID, &cv.ID, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, historyOf(t, second.ID), 1)
}

func TestSubmitResolvesCV(t *testing.T) {
	ctx := context.Background()
	post := openPost(t)
	student1 := identity.New(database.TestStudent1.ID, model.RoleStudent)

	app, err := svc.Submit(ctx, student1, post.ID, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, app.CVFileID)
	assert.Equal(t, database.TestCVStudent1.ID, *app.CVFileID)
	require.NotNil(t, app.ProfileID)
	assert.Equal(t, database.TestProfile1.ID, *app.ProfileID)
}

func TestSubmitMissingCV(t *testing.T) {
	ctx := context.Background()
	post := openPost(t)
	applicant, _ := applicantWithCV(t)

	_, err := svc.Submit(ctx, applicant, post.ID, nil, nil)
	assert.ErrorIs(t, err, apperror.ErrMissingCV)

	// Someone else's file is not usable.
	_, err = svc.Submit(ctx, applicant, post.ID, &database.TestCVStudent2.ID, nil)
	assert.ErrorIs(t, err, apperror.ErrMissingCV)

	deleted, err := database.NewTestFile(testDB.DB, applicant.UserID)
	require.NoError(t, err)
	require.NoError(t, testDB.Model(&deleted).Update("is_deleted", true).Error)
	_, err = svc.Submit(ctx, applicant, post.ID, &deleted.ID, nil)
	assert.ErrorIs(t, err, apperror.ErrMissingCV)

	var count int64
	testDB.Model(&model.Application{}).Where("job_post_id = ?", post.ID).Count(&count)
	assert.Zero(t, count)
}

func TestSubmitRejectsLongCoverLetter(t *testing.T) {
	applicant, cv := applicantWithCV(t)
	letter := strings.Repeat("a", MaxCoverLetter+1)

	_, err := svc.Submit(context.Background(), applicant, openPost(t).ID, &cv.ID, &letter)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestWithdrawFromTerminalStates(t *testing.T) {
	ctx := context.Background()

	for _, terminal := range []model.ApplicationStatus{model.ApplicationHired, model.ApplicationRejected} {
		t.Run(terminal.String(), func(t *testing.T) {
			applicant, cv := applicantWithCV(t)
			app, err := svc.Submit(ctx, applicant, openPost(t).ID, &cv.ID, nil)
			require.NoError(t, err)

			_, err = svc.TransitionByEmployer(ctx, employer1(), app.ID, terminal, nil)
			require.NoError(t, err)
			before := historyOf(t, app.ID)

			_, err = svc.Withdraw(ctx, applicant, app.ID)
			assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

			var stored model.Application
			require.NoError(t, testDB.First(&stored, "id = ?", app.ID).Error)
			assert.Equal(t, terminal, stored.Status)
			assert.Len(t, historyOf(t, app.ID), len(before))

			_, err = svc.TransitionByEmployer(ctx, employer1(), app.ID, model.ApplicationShortlisted, nil)
			assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
		})
	}
}

func TestEmployerTransitions(t *testing.T) {
	ctx := context.Background()
	applicant, cv := applicantWithCV(t)
	app, err := svc.Submit(ctx, applicant, openPost(t).ID, &cv.ID, nil)
	require.NoError(t, err)

	_, err = svc.TransitionByEmployer(ctx, employer2(), app.ID, model.ApplicationShortlisted, nil)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	_, err = svc.TransitionByEmployer(ctx, applicant, app.ID, model.ApplicationShortlisted, nil)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	_, err = svc.TransitionByEmployer(ctx, employer1(), app.ID, model.ApplicationWithdrawn, nil)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	note := "Strong barista experience"
	app, err = svc.TransitionByEmployer(ctx, employer1(), app.ID, model.ApplicationShortlisted, &note)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationShortlisted, app.Status)

	_, err = svc.TransitionByEmployer(ctx, employer1(), app.ID, model.ApplicationApplied, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	app, err = svc.TransitionByEmployer(ctx, employer1(), app.ID, model.ApplicationHired, nil)
	require.NoError(t, err)

	h := historyOf(t, app.ID)
	require.Len(t, h, 3)
	assert.Equal(t, note, h[1].Note)
	assert.Equal(t, "Offer extended", h[2].Note)
	assert.Equal(t, model.ApplicationShortlisted, h[2].OldStatus)
}

func TestSkipAheadToRejected(t *testing.T) {
	ctx := context.Background()
	applicant, cv := applicantWithCV(t)
	app, err := svc.Submit(ctx, applicant, openPost(t).ID, &cv.ID, nil)
	require.NoError(t, err)

	app, err = svc.TransitionByEmployer(ctx, employer1(), app.ID, model.ApplicationRejected, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationRejected, app.Status)
	assert.Equal(t, "Application declined", historyOf(t, app.ID)[1].Note)
}

func TestGetVisibility(t *testing.T) {
	ctx := context.Background()
	applicant, cv := applicantWithCV(t)
	app, err := svc.Submit(ctx, applicant, openPost(t).ID, &cv.ID, nil)
	require.NoError(t, err)

	got, err := svc.Get(ctx, applicant, app.ID)
	require.NoError(t, err)
	assert.Len(t, got.History, 1)

	_, err = svc.Get(ctx, employer1(), app.ID)
	assert.NoError(t, err)

	_, err = svc.Get(ctx, employer2(), app.ID)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	_, err = svc.Get(ctx, applicant, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestStatsAndListings(t *testing.T) {
	ctx := context.Background()
	post := openPost(t)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		applicant, cv := applicantWithCV(t)
		app, err := svc.Submit(ctx, applicant, post.ID, &cv.ID, nil)
		require.NoError(t, err)
		ids = append(ids, app.ID)
	}
	_, err := svc.TransitionByEmployer(ctx, employer1(), ids[0], model.ApplicationInterview, nil)
	require.NoError(t, err)

	stats, err := svc.StatsByPosting(ctx, employer1(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Counts[model.ApplicationApplied])
	assert.Equal(t, int64(1), stats.Counts[model.ApplicationInterview])

	_, err = svc.StatsByPosting(ctx, employer2(), post.ID)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	interview := model.ApplicationInterview
	apps, err := svc.ListByPosting(ctx, employer1(), post.ID, Filter{Status: &interview})
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, ids[0], apps[0].ID)

	all, err := svc.ListByPosting(ctx, employer1(), post.ID, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestListMine(t *testing.T) {
	ctx := context.Background()
	applicant, cv := applicantWithCV(t)

	for i := 0; i < 2; i++ {
		_, err := svc.Submit(ctx, applicant, openPost(t).ID, &cv.ID, nil)
		require.NoError(t, err)
	}

	mine, err := svc.ListMine(ctx, applicant, Filter{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	withdrawn := model.ApplicationWithdrawn
	none, err := svc.ListMine(ctx, applicant, Filter{Status: &withdrawn})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeletedPostingHidesApplications(t *testing.T) {
	ctx := context.Background()
	post := openPost(t)
	applicant, cv := applicantWithCV(t)
	app, err := svc.Submit(ctx, applicant, post.ID, &cv.ID, nil)
	require.NoError(t, err)

	require.NoError(t, testDB.Model(&model.JobPost{}).Where("id = ?", post.ID).Update("is_deleted", true).Error)

	_, err = svc.TransitionByEmployer(ctx, employer1(), app.ID, model.ApplicationShortlisted, nil)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = svc.Get(ctx, employer1(), app.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = svc.Get(ctx, applicant, app.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = svc.Withdraw(ctx, applicant, app.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	mine, err := svc.ListMine(ctx, applicant, Filter{})
	require.NoError(t, err)
	assert.Empty(t, mine)

	var stored model.Application
	require.NoError(t, testDB.First(&stored, "id = ?", app.ID).Error)
	assert.Equal(t, model.ApplicationApplied, stored.Status)
	assert.Len(t, historyOf(t, app.ID), 1)
}

func TestSubmitRollsBackWhenHistoryFails(t *testing.T) {
	post := openPost(t)
	applicant, cv := applicantWithCV(t)

	failCtx, remove, err := database.FailCreates(testDB.DB, "test:fail_application_history", func(dest any) bool {
		_, ok := dest.(*model.ApplicationHistory)
		return ok
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = remove() })

	_, err = svc.Submit(failCtx, applicant, post.ID, &cv.ID, nil)
	assert.ErrorIs(t, err, apperror.ErrInternal)
	assert.ErrorIs(t, err, database.ErrInjected)

	var count int64
	require.NoError(t, testDB.Model(&model.Application{}).
		Where("job_post_id = ? AND applicant_id = ?", post.ID, applicant.UserID).Count(&count).Error)
	assert.Zero(t, count)

	// Nothing left behind blocks a later attempt
	app, err := svc.Submit(context.Background(), applicant, post.ID, &cv.ID, nil)
	require.NoError(t, err)
	assert.Len(t, historyOf(t, app.ID), 1)
}

func TestHistoryOrderWithFrozenClock(t *testing.T) {
	ctx := context.Background()
	frozen := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	fixed := NewService(testDB.DB, files.NewResolver(), workflow.WithClock(func() time.Time { return frozen }))
	applicant, cv := applicantWithCV(t)

	app, err := fixed.Submit(ctx, applicant, openPost(t).ID, &cv.ID, nil)
	require.NoError(t, err)
	_, err = fixed.TransitionByEmployer(ctx, employer1(), app.ID, model.ApplicationShortlisted, nil)
	require.NoError(t, err)
	_, err = fixed.TransitionByEmployer(ctx, employer1(), app.ID, model.ApplicationInterview, nil)
	require.NoError(t, err)
	_, err = fixed.Withdraw(ctx, applicant, app.ID)
	require.NoError(t, err)

	got, err := fixed.Get(ctx, applicant, app.ID)
	require.NoError(t, err)
	var order []model.ApplicationStatus
	for _, h := range got.History {
		assert.True(t, h.ChangedAt.Equal(frozen))
		order = append(order, h.NewStatus)
	}
	assert.Equal(t, []model.ApplicationStatus{
		model.ApplicationWithdrawn,
		model.ApplicationInterview,
		model.ApplicationShortlisted,
		model.ApplicationApplied,
	}, order)
}
