package application

import (
	"context"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"PartTimeJob-backend/internal/auth"
	"PartTimeJob-backend/internal/database"
	"PartTimeJob-backend/internal/files"
	"PartTimeJob-backend/internal/middleware"
	"PartTimeJob-backend/internal/model"
	"PartTimeJob-backend/internal/testutil"
	appflow "PartTimeJob-backend/internal/workflow/application"
)

var testDB *database.DBinstanceStruct

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	var err error
	var midTeardown func(context.Context, ...testcontainers.TerminateOption) error
	midTeardown, testDB, err = database.GetTestDB()
	if err != nil {
		os.Exit(1)
	}
	code := m.Run()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if midTeardown != nil {
		_ = midTeardown(ctx)
	}
	os.Exit(code)
}

func engine() *gin.Engine {
	ac := NewApplicationController(appflow.NewService(testDB.DB, files.NewResolver()))

	r := gin.New()
	authed := r.Group("", middleware.RequireAuth(testDB, auth.TestTokenIssuer))
	authed.GET("/applications/:id", ac.GetApplication)
	authed.POST("/applications/:id/withdraw", ac.WithdrawHandler)

	employer := authed.Group("", middleware.CheckRole(model.RoleEmployer))
	employer.POST("/applications/:id/transition", ac.TransitionHandler)
	employer.GET("/jobposts/:id/applications", ac.GetPostApplications)
	employer.GET("/jobposts/:id/applications/stats", ac.GetPostStats)

	student := authed.Group("", middleware.CheckRole(model.RoleStudent))
	student.POST("/jobposts/:id/applications", ac.ApplyHandler)
	student.GET("/applications/mine", ac.GetMyApplications)
	return r
}

// newApplicant registers a student with a CV and returns a token and the CV id
func newApplicant(t *testing.T) (string, string) {
	t.Helper()
	u, err := database.NewTestUser(testDB.DB, "http_applicant", model.RoleStudent)
	require.NoError(t, err)
	cv, err := database.NewTestFile(testDB.DB, u.ID)
	require.NoError(t, err)
	tok, err := auth.GetAccessToken(t, testDB, u.Username, database.TestSeedPassword)
	require.NoError(t, err)
	return tok, cv.ID.String()
}

func newOpenPost(t *testing.T) string {
	t.Helper()
	post, err := database.NewTestJobPost(testDB.DB, database.TestEmployer1.ID, database.TestCompany1.ID, model.JobPostPublished, nil)
	require.NoError(t, err)
	return post.ID.String()
}

func employerToken(t *testing.T, u model.User) string {
	t.Helper()
	tok, err := auth.GetAccessToken(t, testDB, u.Username, database.TestSeedPassword)
	require.NoError(t, err)
	return tok
}

func TestApplyHandler_Success(t *testing.T) {
	r := engine()
	tok, cv := newApplicant(t)
	post := newOpenPost(t)

	rec, resp := testutil.MakeJSONRequest(gin.H{"cv_file_id": cv, "cover_letter": "hi"}, tok, r, "/jobposts/"+post+"/applications", http.MethodPost)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "applied", resp["status"])
	assert.Equal(t, post, resp["job_post_id"])
	assert.Equal(t, cv, resp["cv_file_id"])
	history, ok := resp["history"].([]interface{})
	require.True(t, ok)
	assert.Len(t, history, 1)
}

func TestApplyHandler_Errors(t *testing.T) {
	r := engine()
	tok, cv := newApplicant(t)
	post := newOpenPost(t)
	apply := func(post string, body gin.H) (int, map[string]interface{}) {
		rec, resp := testutil.MakeJSONRequest(body, tok, r, "/jobposts/"+post+"/applications", http.MethodPost)
		return rec.Code, resp
	}

	code, resp := apply(database.TestJobPostExpired.ID.String(), gin.H{"cv_file_id": cv})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "expired", resp["kind"])
	assert.Equal(t, "expired", resp["state"])

	code, resp = apply(post, gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "missing_cv", resp["kind"])

	code, resp = apply(post, gin.H{"cv_file_id": cv, "cover_letter": strings.Repeat("a", appflow.MaxCoverLetter+1)})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", resp["kind"])

	code, _ = apply(post, gin.H{"cv_file_id": cv})
	require.Equal(t, http.StatusCreated, code)
	code, resp = apply(post, gin.H{"cv_file_id": cv})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "already_applied", resp["kind"])

	rec, _ := testutil.MakeJSONRequest(gin.H{"cv_file_id": cv}, employerToken(t, database.TestEmployer1), r, "/jobposts/"+post+"/applications", http.MethodPost)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLifecycleOverHTTP(t *testing.T) {
	r := engine()
	tok, cv := newApplicant(t)
	post := newOpenPost(t)
	owner := employerToken(t, database.TestEmployer1)

	rec, resp := testutil.MakeJSONRequest(gin.H{"cv_file_id": cv}, tok, r, "/jobposts/"+post+"/applications", http.MethodPost)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := resp["id"].(string)

	rec, resp = testutil.MakeJSONRequest(gin.H{"status": "interview"}, owner, r, "/applications/"+id+"/transition", http.MethodPost)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "interview", resp["status"])

	rec, _ = testutil.MakeJSONRequest(gin.H{"status": "hired"}, employerToken(t, database.TestEmployer2), r, "/applications/"+id+"/transition", http.MethodPost)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, resp = testutil.MakeJSONRequest(nil, tok, r, "/applications/"+id+"/withdraw", http.MethodPost)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "withdrawn", resp["status"])

	rec, resp = testutil.MakeJSONRequest(nil, tok, r, "/applications/"+id+"/withdraw", http.MethodPost)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", resp["kind"])
	assert.Equal(t, "withdrawn", resp["state"])

	rec, resp = testutil.MakeJSONRequest(nil, tok, r, "/applications/"+id, http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)
	history := resp["history"].([]interface{})
	require.Len(t, history, 3)
	newest := history[0].(map[string]interface{})
	assert.Equal(t, "interview", newest["old_status"])
	assert.Equal(t, "withdrawn", newest["new_status"])
	assert.Equal(t, model.NoteWithdrawn, newest["note"])
}

func TestPostListingsAndStats(t *testing.T) {
	r := engine()
	post := newOpenPost(t)
	owner := employerToken(t, database.TestEmployer1)

	for i := 0; i < 2; i++ {
		tok, cv := newApplicant(t)
		rec, _ := testutil.MakeJSONRequest(gin.H{"cv_file_id": cv}, tok, r, "/jobposts/"+post+"/applications", http.MethodPost)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, _ := testutil.MakeJSONRequest(nil, owner, r, "/jobposts/"+post+"/applications?status=applied", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, testutil.DecodeList(rec), 2)

	rec, _ = testutil.MakeJSONRequest(nil, owner, r, "/jobposts/"+post+"/applications?status=bogus", http.MethodGet)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp := testutil.MakeJSONRequest(nil, owner, r, "/jobposts/"+post+"/applications/stats", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), resp["total"])
	assert.Equal(t, map[string]interface{}{"applied": float64(2)}, resp["counts"])

	rec, _ = testutil.MakeJSONRequest(nil, employerToken(t, database.TestEmployer2), r, "/jobposts/"+post+"/applications/stats", http.MethodGet)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetMyApplications(t *testing.T) {
	r := engine()
	tok, cv := newApplicant(t)
	rec, _ := testutil.MakeJSONRequest(gin.H{"cv_file_id": cv}, tok, r, "/jobposts/"+newOpenPost(t)+"/applications", http.MethodPost)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = testutil.MakeJSONRequest(nil, tok, r, "/applications/mine", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, testutil.DecodeList(rec), 1)
}

func TestTransitionAcceptsStatusCodes(t *testing.T) {
	r := engine()
	tok, cv := newApplicant(t)
	owner := employerToken(t, database.TestEmployer1)
	rec, resp := testutil.MakeJSONRequest(gin.H{"cv_file_id": cv}, tok, r, "/jobposts/"+newOpenPost(t)+"/applications", http.MethodPost)
	require.Equal(t, http.StatusCreated, rec.Code)
	path := "/applications/" + resp["id"].(string) + "/transition"

	rec, resp = testutil.MakeJSONRequest(gin.H{"status": 1}, owner, r, path, http.MethodPost)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "shortlisted", resp["status"])

	rec, resp = testutil.MakeJSONRequest(gin.H{"status": "2"}, owner, r, path, http.MethodPost)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "interview", resp["status"])

	rec, _ = testutil.MakeJSONRequest(gin.H{"status": 42}, owner, r, path, http.MethodPost)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = testutil.MakeJSONRequest(nil, owner, r, "/jobposts/"+newOpenPost(t)+"/applications?status=0", http.MethodGet)
	assert.Equal(t, http.StatusOK, rec.Code)
}
