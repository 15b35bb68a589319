package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/costpilot-dev/costpilot/internal/access"
	"github.com/costpilot-dev/costpilot/internal/types"
)

func gateRequest(t *testing.T, user *AuthenticatedUser, gate gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/probe", func(ctx *gin.Context) {
		if user != nil {
			ctx.Set(types.ContextUserKey, *user)
		}
		ctx.Next()
	}, gate, func(ctx *gin.Context) {
		ctx.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	r.ServeHTTP(w, req)

	return w
}

func TestRequirePage(t *testing.T) {
	cases := []struct {
		name   string
		role   string
		page   access.Page
		status int
	}{
		{name: "admin reaches users", role: "admin", page: access.PageUsers, status: http.StatusNoContent},
		{name: "finance reaches financials", role: "finance", page: access.PageFinancials, status: http.StatusNoContent},
		{name: "finance denied projects", role: "finance", page: access.PageProjects, status: http.StatusForbidden},
		{name: "project manager denied users", role: "project_manager", page: access.PageUsers, status: http.StatusForbidden},
		{name: "unknown role denied everything", role: "intern", page: access.PageDashboard, status: http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			user := AuthenticatedUser{ID: 1, Role: tc.role}
			w := gateRequest(t, &user, RequirePage(tc.page))

			require.Equal(t, tc.status, w.Code)

			if tc.status == http.StatusForbidden {
				require.Contains(t, w.Body.String(), `"redirect":"/dashboard"`)
			}
		})
	}
}

func TestRequirePageWithoutIdentity(t *testing.T) {
	w := gateRequest(t, nil, RequirePage(access.PageDashboard))

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequirePrivilege(t *testing.T) {
	holder := AuthenticatedUser{ID: 2, Role: "project_manager", Privileges: []string{"projects:approve"}}
	w := gateRequest(t, &holder, RequirePrivilege("projects:approve"))
	require.Equal(t, http.StatusNoContent, w.Code)

	lacking := AuthenticatedUser{ID: 3, Role: "project_manager"}
	w = gateRequest(t, &lacking, RequirePrivilege("projects:approve"))
	require.Equal(t, http.StatusForbidden, w.Code)

	admin := AuthenticatedUser{ID: 4, Role: "admin"}
	w = gateRequest(t, &admin, RequirePrivilege("projects:approve"))
	require.Equal(t, http.StatusNoContent, w.Code, "admin passes any privilege gate")
}
