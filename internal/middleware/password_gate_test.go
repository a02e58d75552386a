package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/weichenlin/grouplab-api/internal/models"
)

func withIdentity(identity *models.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}

func gateRouter(identity *models.Identity, exempt ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(withIdentity(identity), PasswordGate(exempt...))
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	router.GET("/courses", ok)
	router.POST("/auth/change-password", ok)
	return router
}

func TestPasswordGateBlocksUnchangedStudent(t *testing.T) {
	student := &models.User{ID: "u1", Role: models.RoleStudent, HasChangedPassword: false}
	router := gateRouter(&models.Identity{Effective: student, Actor: student})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/courses", nil))

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
		Meta map[string]string `json:"meta"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Code != "PASSWORD_CHANGE_REQUIRED" {
		t.Fatalf("unexpected error code: %s", body.Error.Code)
	}
	if body.Meta["redirect_to"] != "/auth/change-password" {
		t.Fatalf("unexpected redirect: %s", body.Meta["redirect_to"])
	}
}

func TestPasswordGateExemptPath(t *testing.T) {
	student := &models.User{ID: "u1", Role: models.RoleStudent, HasChangedPassword: false}
	router := gateRouter(&models.Identity{Effective: student, Actor: student}, "/auth/change-password")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/auth/change-password", nil))

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestPasswordGateSkippedWhileImpersonating(t *testing.T) {
	professor := &models.User{ID: "p1", Role: models.RoleProfessor, HasChangedPassword: true}
	student := &models.User{ID: "u1", Role: models.RoleStudent, HasChangedPassword: false}
	router := gateRouter(&models.Identity{Effective: student, Actor: professor, IsImpersonating: true})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/courses", nil))

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestPasswordGatePassesChangedStudentAndProfessor(t *testing.T) {
	cases := []*models.User{
		{ID: "u1", Role: models.RoleStudent, HasChangedPassword: true},
		{ID: "p1", Role: models.RoleProfessor, HasChangedPassword: false},
	}
	for _, user := range cases {
		router := gateRouter(&models.Identity{Effective: user, Actor: user})
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/courses", nil))
		if recorder.Code != http.StatusNoContent {
			t.Fatalf("user %s: unexpected status %d", user.ID, recorder.Code)
		}
	}
}
