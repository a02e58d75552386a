package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/weichenlin/grouplab-api/internal/models"
)

func rbacRouter(identity *models.Identity, guard gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if identity != nil {
		router.Use(withIdentity(identity))
	}
	router.Use(guard)
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return router
}

func TestRequireRolesJudgesEffectiveRole(t *testing.T) {
	professor := &models.User{ID: "p1", Role: models.RoleProfessor}
	student := &models.User{ID: "u1", Role: models.RoleStudent}

	// An impersonating professor carries the student's effective role and is
	// held to it.
	impersonating := &models.Identity{Effective: student, Actor: professor, IsImpersonating: true}
	router := rbacRouter(impersonating, RequireRoles(models.RoleProfessor))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}

	router = rbacRouter(impersonating, RequireRoles(models.RoleStudent))
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRequireRolesWithoutIdentity(t *testing.T) {
	router := rbacRouter(nil, RequireRoles(models.RoleStudent))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRequireActorRoleIgnoresImpersonation(t *testing.T) {
	professor := &models.User{ID: "p1", Role: models.RoleProfessor}
	student := &models.User{ID: "u1", Role: models.RoleStudent}

	impersonating := &models.Identity{Effective: student, Actor: professor, IsImpersonating: true}
	router := rbacRouter(impersonating, RequireActorRole(models.RoleProfessor))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}

	plainStudent := &models.Identity{Effective: student, Actor: student}
	router = rbacRouter(plainStudent, RequireActorRole(models.RoleProfessor))
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}
