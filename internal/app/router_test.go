package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"learning_progress_backend/internal/config"
	"learning_progress_backend/internal/model"
	"learning_progress_backend/internal/testutil"
	"learning_progress_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "router-test-secret"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type harness struct {
	app *App
	db  *gorm.DB
}

func newHarness(t *testing.T, opts ...func(*config.Config)) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Defaults()
	cfg.JWT.Secret = testSecret
	for _, opt := range opts {
		opt(cfg)
	}

	db := testutil.NewDB(t)
	return &harness{app: New(cfg, db, nil), db: db}
}

func token(t *testing.T, userID uint, role model.UserRole) string {
	t.Helper()
	tok, err := util.GenerateJWT(userID, role, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(t *testing.T, method, path, tok string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	h.app.Router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	w, env := h.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "ok", data.Status)
	assert.Equal(t, "up", data.Components["database"])
	assert.Equal(t, "disabled", data.Components["cache"])
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t)

	w, _ := h.do(t, http.MethodGet, "/api/streak", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = h.do(t, http.MethodGet, "/api/streak", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLearnerFlow(t *testing.T) {
	h := newHarness(t)
	user := testutil.SeedUser(t, h.db)
	module, items := testutil.SeedModule(t, h.db, model.ContentDocument, model.ContentVideo)
	tok := token(t, user.ID, model.Student)

	w, _ := h.do(t, http.MethodPut, fmt.Sprintf("/api/contents/%d/progress", items[0].ID), tok, map[string]int{"progressPercentage": 50})
	assert.Equal(t, http.StatusForbidden, w.Code, "writes before enrollment are rejected")

	w, env := h.do(t, http.MethodPost, fmt.Sprintf("/api/modules/%d/enroll", module.ID), tok, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var enrollment model.Enrollment
	require.NoError(t, json.Unmarshal(env.Data, &enrollment))
	assert.Equal(t, model.EnrollmentActive, enrollment.Status)
	assert.Equal(t, 2, enrollment.TotalSections)

	w, _ = h.do(t, http.MethodPost, fmt.Sprintf("/api/modules/%d/enroll", module.ID), tok, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = h.do(t, http.MethodPut, fmt.Sprintf("/api/contents/%d/progress", items[0].ID), tok, map[string]int{"progressPercentage": 150})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = h.do(t, http.MethodPut, fmt.Sprintf("/api/contents/%d/progress", items[0].ID), tok, map[string]int{"timeSpent": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code, "progressPercentage is required")

	w, env = h.do(t, http.MethodPost, fmt.Sprintf("/api/contents/%d/complete", items[0].ID), tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result struct {
		NewlyCompleted bool              `json:"newlyCompleted"`
		PointsAwarded  int               `json:"pointsAwarded"`
		Enrollment     *model.Enrollment `json:"enrollment"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.NewlyCompleted)
	assert.Equal(t, config.Defaults().Awards.Document, result.PointsAwarded)
	assert.Equal(t, 50, result.Enrollment.ProgressPercentage)

	w, env = h.do(t, http.MethodPut, fmt.Sprintf("/api/contents/%d/progress", items[1].ID), tok, map[string]int{"progressPercentage": 95, "timeSpent": 8})
	require.Equal(t, http.StatusOK, w.Code)
	var videoResult struct {
		EnrollmentCompleted bool              `json:"enrollmentCompleted"`
		Enrollment          *model.Enrollment `json:"enrollment"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &videoResult))
	assert.True(t, videoResult.EnrollmentCompleted)
	assert.Equal(t, model.EnrollmentCompleted, videoResult.Enrollment.Status)

	w, _ = h.do(t, http.MethodPost, "/api/enrollments/"+enrollment.ID+"/drop", tok, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "completed enrollments cannot be dropped")

	w, env = h.do(t, http.MethodGet, "/api/enrollments?status=completed", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []model.Enrollment
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, enrollment.ID, list[0].ID)

	w, _ = h.do(t, http.MethodGet, "/api/enrollments?status=bogus", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = h.do(t, http.MethodGet, "/api/me/stats", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		CompletedModules int `json:"completedModules"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 1, stats.CompletedModules)
}

func TestEnrollmentOwnership(t *testing.T) {
	h := newHarness(t)
	owner := testutil.SeedUser(t, h.db)
	other := testutil.SeedUser(t, h.db)
	module, _ := testutil.SeedModule(t, h.db, model.ContentLab)

	w, env := h.do(t, http.MethodPost, fmt.Sprintf("/api/modules/%d/enroll", module.ID), token(t, owner.ID, model.Student), nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var enrollment model.Enrollment
	require.NoError(t, json.Unmarshal(env.Data, &enrollment))

	w, _ = h.do(t, http.MethodPost, "/api/enrollments/"+enrollment.ID+"/pause", token(t, other.ID, model.Student), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = h.do(t, http.MethodGet, "/api/enrollments/does-not-exist", token(t, owner.ID, model.Student), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = h.do(t, http.MethodPost, "/api/modules/abc/enroll", token(t, owner.ID, model.Student), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	h := newHarness(t)
	learner := testutil.SeedUser(t, h.db)
	module, items := testutil.SeedModule(t, h.db, model.ContentDocument, model.ContentDocument)
	learnerTok := token(t, learner.ID, model.Student)

	w, _ := h.do(t, http.MethodPost, fmt.Sprintf("/api/modules/%d/enroll", module.ID), learnerTok, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	w, _ = h.do(t, http.MethodPost, fmt.Sprintf("/api/contents/%d/complete", items[0].ID), learnerTok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	path := fmt.Sprintf("/api/admin/contents/%d/deactivate", items[1].ID)
	w, _ = h.do(t, http.MethodPost, path, learnerTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = h.do(t, http.MethodPost, path, token(t, 999, model.Teacher), nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "deactivation is admin only")

	w, env := h.do(t, http.MethodPost, path, token(t, 1000, model.Admin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result struct {
		RecomputedEnrollments int `json:"recomputedEnrollments"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 1, result.RecomputedEnrollments)

	w, env = h.do(t, http.MethodGet, fmt.Sprintf("/api/admin/users/%d/enrollments", learner.ID), token(t, 999, model.Teacher), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []model.Enrollment
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, model.EnrollmentCompleted, list[0].Status, "one of one live items complete")
	assert.Equal(t, 100, list[0].ProgressPercentage)
}

func TestRateLimit(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.RateLimit.MaxRequests = 2
		cfg.RateLimit.WindowMinutes = 60
	})

	for i := 0; i < 2; i++ {
		w, _ := h.do(t, http.MethodGet, "/api/health", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w, env := h.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, http.StatusTooManyRequests, env.Code)
}

func TestConfigReloadUpdatesPolicy(t *testing.T) {
	h := newHarness(t)
	user := testutil.SeedUser(t, h.db)
	module, items := testutil.SeedModule(t, h.db, model.ContentVideo, model.ContentLab)
	tok := token(t, user.ID, model.Student)

	w, _ := h.do(t, http.MethodPost, fmt.Sprintf("/api/modules/%d/enroll", module.ID), tok, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	next := config.Defaults()
	next.Progress.VideoAutoCompleteThreshold = 60
	next.Awards.Video = 77
	h.app.applyConfig(next)

	w, env := h.do(t, http.MethodPut, fmt.Sprintf("/api/contents/%d/progress", items[0].ID), tok, map[string]int{"progressPercentage": 65})
	require.Equal(t, http.StatusOK, w.Code)
	var result struct {
		NewlyCompleted bool `json:"newlyCompleted"`
		PointsAwarded  int  `json:"pointsAwarded"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.NewlyCompleted)
	assert.Equal(t, 77, result.PointsAwarded)
}
