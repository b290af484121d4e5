package jobpost

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"PartTimeJob-backend/internal/auth"
	"PartTimeJob-backend/internal/database"
	"PartTimeJob-backend/internal/middleware"
	"PartTimeJob-backend/internal/model"
	"PartTimeJob-backend/internal/testutil"
	postflow "PartTimeJob-backend/internal/workflow/jobpost"
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
	jc := NewJobPostController(postflow.NewService(testDB.DB))
	requireAuth := middleware.RequireAuth(testDB, auth.TestTokenIssuer)

	r := gin.New()
	r.GET("/jobposts", jc.GetOpenPosts)
	r.GET("/jobposts/:id", middleware.OptionalAuth(testDB, auth.TestTokenIssuer), jc.GetPostByID)
	r.GET("/jobposts/:id/history", middleware.OptionalAuth(testDB, auth.TestTokenIssuer), jc.GetPostHistory)
	r.GET("/jobposts/:id/shifts", middleware.OptionalAuth(testDB, auth.TestTokenIssuer), jc.GetShifts)
	r.GET("/companies/:id/jobposts", jc.GetCompanyPosts)
	employer := r.Group("", requireAuth, middleware.CheckRole(model.RoleEmployer))
	employer.POST("/jobposts", jc.CreateJobPostHandler)
	employer.GET("/jobposts/mine", jc.GetMyPosts)
	employer.PATCH("/jobposts/:id", jc.EditJobPost)
	employer.DELETE("/jobposts/:id", jc.DeleteJobPost)
	employer.POST("/jobposts/:id/transition", jc.TransitionJobPost)
	employer.POST("/jobposts/:id/shifts", jc.AddShift)
	employer.PATCH("/jobposts/shifts/:shiftID", jc.UpdateShift)
	employer.DELETE("/jobposts/shifts/:shiftID", jc.DeleteShift)
	return r
}

func token(t *testing.T, u model.User) string {
	t.Helper()
	tok, err := auth.GetAccessToken(t, testDB, u.Username, database.TestSeedPassword)
	require.NoError(t, err)
	return tok
}

func createDraft(t *testing.T, r *gin.Engine, tok string) string {
	t.Helper()
	body := gin.H{
		"company_id":  database.TestCompany1.ID,
		"title":       "Tutor " + uuid.NewString()[:6],
		"description": "Math tutoring for high school students",
		"salary_min":  100000,
		"salary_max":  150000,
		"tags":        []string{"tutor", "weekend"},
	}
	rec, resp := testutil.MakeJSONRequest(body, tok, r, "/jobposts", http.MethodPost)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return resp["id"].(string)
}

func TestCreateJobPostHandler_Success(t *testing.T) {
	r := engine()
	tok := token(t, database.TestEmployer1)

	id := createDraft(t, r, tok)

	rec, resp := testutil.MakeJSONRequest(nil, tok, r, "/jobposts/"+id, http.MethodGet)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "draft", resp["status"])
	assert.Equal(t, "draft", resp["effective_status"])
	assert.Equal(t, []interface{}{"tutor", "weekend"}, resp["tags"])
}

func TestCreateJobPostHandler_Rejections(t *testing.T) {
	r := engine()
	employerTok := token(t, database.TestEmployer1)

	tests := []struct {
		name     string
		tok      string
		body     gin.H
		wantCode int
		wantKind string
	}{
		{"student", token(t, database.TestStudent1), gin.H{"company_id": database.TestCompany1.ID, "title": "x", "description": "y"}, http.StatusForbidden, ""},
		{"other company", employerTok, gin.H{"company_id": database.TestCompany2.ID, "title": "x", "description": "y"}, http.StatusForbidden, "permission_denied"},
		{"missing company", employerTok, gin.H{"title": "x", "description": "y"}, http.StatusBadRequest, "validation"},
		{"missing title", employerTok, gin.H{"company_id": database.TestCompany1.ID, "description": "y"}, http.StatusBadRequest, "validation"},
		{"unknown company", employerTok, gin.H{"company_id": uuid.New(), "title": "x", "description": "y"}, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := testutil.MakeJSONRequest(tt.body, tt.tok, r, "/jobposts", http.MethodPost)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, resp["kind"])
			}
		})
	}
}

func TestTransitionJobPost(t *testing.T) {
	r := engine()
	tok := token(t, database.TestEmployer1)
	id := createDraft(t, r, tok)
	path := "/jobposts/" + id + "/transition"

	rec, resp := testutil.MakeJSONRequest(gin.H{"status": "published"}, tok, r, path, http.MethodPost)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", resp["kind"])
	assert.Equal(t, "draft", resp["state"])
	assert.Equal(t, id, resp["entity_id"])

	for _, next := range []string{"pending_review", "published", "closed"} {
		rec, resp = testutil.MakeJSONRequest(gin.H{"status": next}, tok, r, path, http.MethodPost)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, next, resp["status"])
	}

	rec, _ = testutil.MakeJSONRequest(gin.H{"status": "sideways"}, tok, r, path, http.MethodPost)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = testutil.MakeJSONRequest(nil, "", r, "/jobposts/"+id+"/history", http.MethodGet)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = testutil.MakeJSONRequest(nil, tok, r, "/jobposts/"+id+"/history", http.MethodGet)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, testutil.DecodeList(rec), 4)
}

func TestTransitionJobPost_OtherEmployer(t *testing.T) {
	r := engine()
	id := createDraft(t, r, token(t, database.TestEmployer1))

	rec, resp := testutil.MakeJSONRequest(gin.H{"status": "pending_review"}, token(t, database.TestEmployer2), r,
		"/jobposts/"+id+"/transition", http.MethodPost)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "permission_denied", resp["kind"])
}

func TestEditAndDeleteJobPost(t *testing.T) {
	r := engine()
	tok := token(t, database.TestEmployer1)
	id := createDraft(t, r, tok)

	rec, resp := testutil.MakeJSONRequest(gin.H{"title": "Senior tutor"}, tok, r, "/jobposts/"+id, http.MethodPatch)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Senior tutor", resp["title"])

	rec, _ = testutil.MakeJSONRequest(gin.H{"title": "   "}, tok, r, "/jobposts/"+id, http.MethodPatch)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = testutil.MakeJSONRequest(nil, tok, r, "/jobposts/"+id, http.MethodDelete)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = testutil.MakeJSONRequest(nil, tok, r, "/jobposts/"+id, http.MethodGet)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOpenPosts(t *testing.T) {
	r := engine()

	rec, _ := testutil.MakeJSONRequest(nil, "", r, "/jobposts?size=100", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)
	ids := map[string]bool{}
	for _, p := range testutil.DecodeList(rec) {
		ids[p["id"].(string)] = true
		assert.Equal(t, "published", p["effective_status"])
	}
	assert.True(t, ids[database.TestJobPostOpen.ID.String()])
	assert.False(t, ids[database.TestJobPostExpired.ID.String()])
	assert.False(t, ids[database.TestJobPostDraft.ID.String()])

	rec, _ = testutil.MakeJSONRequest(nil, "", r, "/jobposts?page=zero", http.MethodGet)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPostByID_Visibility(t *testing.T) {
	r := engine()

	rec, resp := testutil.MakeJSONRequest(nil, "", r, "/jobposts/"+database.TestJobPostExpired.ID.String(), http.MethodGet)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "permission_denied", resp["kind"])

	rec, resp = testutil.MakeJSONRequest(nil, token(t, database.TestEmployer1), r, "/jobposts/"+database.TestJobPostExpired.ID.String(), http.MethodGet)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "published", resp["status"])
	assert.Equal(t, "expired", resp["effective_status"])

	rec, _ = testutil.MakeJSONRequest(nil, "", r, "/jobposts/not-a-uuid", http.MethodGet)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMyPosts(t *testing.T) {
	r := engine()
	tok := token(t, database.TestEmployer2)

	rec, _ := testutil.MakeJSONRequest(nil, tok, r, "/jobposts/mine", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, p := range testutil.DecodeList(rec) {
		assert.Equal(t, database.TestEmployer2.ID.String(), p["created_by"])
	}
}

func TestShiftHandlers(t *testing.T) {
	r := engine()
	tok := token(t, database.TestEmployer1)
	id := createDraft(t, r, tok)

	rec, resp := testutil.MakeJSONRequest(gin.H{"shift_name": "Sunday morning", "day_of_week": 0, "start_time": "08:00", "end_time": "12:00"}, tok, r,
		"/jobposts/"+id+"/shifts", http.MethodPost)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, id, resp["job_post_id"])
	assert.Equal(t, float64(0), resp["day_of_week"])
	shiftID := resp["id"].(string)

	rec, resp = testutil.MakeJSONRequest(gin.H{"start_time": "8am"}, tok, r, "/jobposts/"+id+"/shifts", http.MethodPost)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", resp["kind"])

	rec, _ = testutil.MakeJSONRequest(gin.H{"note": "hijack"}, token(t, database.TestEmployer2), r, "/jobposts/shifts/"+shiftID, http.MethodPatch)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, resp = testutil.MakeJSONRequest(gin.H{"note": "Bring an apron"}, tok, r, "/jobposts/shifts/"+shiftID, http.MethodPatch)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Bring an apron", resp["note"])
	assert.Equal(t, "08:00", resp["start_time"])

	// Draft shifts are only visible to the creator
	rec, _ = testutil.MakeJSONRequest(nil, "", r, "/jobposts/"+id+"/shifts", http.MethodGet)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = testutil.MakeJSONRequest(nil, tok, r, "/jobposts/"+id+"/shifts", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, testutil.DecodeList(rec), 1)

	rec, _ = testutil.MakeJSONRequest(nil, tok, r, "/jobposts/shifts/"+shiftID, http.MethodDelete)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, resp = testutil.MakeJSONRequest(nil, tok, r, "/jobposts/shifts/"+shiftID, http.MethodDelete)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", resp["kind"])

	rec, _ = testutil.MakeJSONRequest(nil, tok, r, "/jobposts/"+id+"/shifts", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, testutil.DecodeList(rec))
}

func TestClosedPostShiftsAreFrozen(t *testing.T) {
	r := engine()
	tok := token(t, database.TestEmployer1)
	id := createDraft(t, r, tok)

	rec, _ := testutil.MakeJSONRequest(gin.H{"status": "closed"}, tok, r, "/jobposts/"+id+"/transition", http.MethodPost)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := testutil.MakeJSONRequest(gin.H{"shift_name": "Late"}, tok, r, "/jobposts/"+id+"/shifts", http.MethodPost)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", resp["kind"])
	assert.Equal(t, "closed", resp["state"])
}

func TestGetCompanyPosts(t *testing.T) {
	r := engine()

	rec, _ := testutil.MakeJSONRequest(nil, "", r, "/companies/"+database.TestCompany1.ID.String()+"/jobposts?size=100", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)
	ids := map[string]bool{}
	for _, p := range testutil.DecodeList(rec) {
		ids[p["id"].(string)] = true
		assert.Equal(t, database.TestCompany1.ID.String(), p["company_id"])
		assert.Equal(t, "published", p["effective_status"])
	}
	assert.True(t, ids[database.TestJobPostOpen.ID.String()])
	assert.False(t, ids[database.TestJobPostExpired.ID.String()])
	assert.False(t, ids[database.TestJobPostDraft.ID.String()])

	rec, resp := testutil.MakeJSONRequest(nil, "", r, "/companies/"+uuid.NewString()+"/jobposts", http.MethodGet)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", resp["kind"])
}
