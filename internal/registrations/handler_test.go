package registrations

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aura-events/registration-service/internal/auth"
	"github.com/aura-events/registration-service/internal/middleware"
	"github.com/aura-events/registration-service/internal/models"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type apiFixture struct {
	*fixture
	router *gin.Engine
	jwt    *auth.JWTService
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	jwtService := auth.NewJWTService("test-secret", 1)
	router := gin.New()
	NewHandler(f.svc, zap.NewNop()).Mount(router,
		middleware.JWT(jwtService),
		middleware.RequireRole(models.RoleService, models.RoleAdmin),
	)
	return &apiFixture{fixture: f, router: router, jwt: jwtService}
}

func (a *apiFixture) do(t *testing.T, method, path string, body any, token string) (*httptest.ResponseRecorder, envelope) {
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
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (a *apiFixture) token(t *testing.T, userID int64, role models.Role) string {
	t.Helper()
	tok, err := a.jwt.Generate(userID, role)
	require.NoError(t, err)
	return tok
}

func TestHandler_Create(t *testing.T) {
	a := newAPIFixture(t)
	a.events.On("GetEvent", mock.Anything, int64(5)).Return(futureEvent(5), nil).Once()
	a.users.On("CreateAccount", mock.Anything, mock.Anything).Return(int64(77), nil).Once()

	w, env := a.do(t, http.MethodPost, "/registrations", gin.H{
		"eventId": 5, "name": "Ada Lovelace", "email": "ada@example.com", "phone": "+4412",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.True(t, env.Success)

	var creds map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &creds))
	require.EqualValues(t, 1, creds["id"])
	require.Regexp(t, `^\d{4}$`, creds["password"])
}

func TestHandler_CreateValidation(t *testing.T) {
	a := newAPIFixture(t)
	bodies := map[string]gin.H{
		"missing event":  {"name": "Ada", "email": "ada@example.com", "phone": "+1"},
		"negative event": {"eventId": -1, "name": "Ada", "email": "ada@example.com", "phone": "+1"},
		"short name":     {"eventId": 5, "name": "Al", "email": "ada@example.com", "phone": "+1"},
		"blank name":     {"eventId": 5, "name": "     ", "email": "ada@example.com", "phone": "+1"},
		"bad email":      {"eventId": 5, "name": "Ada", "email": "not-an-email", "phone": "+1"},
		"bad phone":      {"eventId": 5, "name": "Ada", "email": "ada@example.com", "phone": "12-34"},
		"phone no plus":  {"eventId": 5, "name": "Ada", "email": "ada@example.com", "phone": "1234"},
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			w, env := a.do(t, http.MethodPost, "/registrations", body, "")
			require.Equal(t, http.StatusBadRequest, w.Code)
			require.False(t, env.Success)
		})
	}
}

func TestHandler_CreateUnknownEvent(t *testing.T) {
	a := newAPIFixture(t)
	a.events.On("GetEvent", mock.Anything, int64(5)).Return(nil, ErrRemoteNotFound).Once()

	w, env := a.do(t, http.MethodPost, "/registrations", gin.H{
		"eventId": 5, "name": "Ada", "email": "ada@example.com", "phone": "+1",
	}, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Event (id=5) doesn't exist.", env.Error)
}

func TestHandler_GetAndUpdate(t *testing.T) {
	a := newAPIFixture(t)
	reg := a.seed(t, models.Registration{EventID: 5, Name: "Yury", Email: "yury@x.io", Phone: "+7111", Status: models.StatusPending})

	w, env := a.do(t, http.MethodPatch, "/registrations", gin.H{"id": reg.ID, "password": "1234", "name": "Yuri"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view models.PublicRegistration
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.Equal(t, models.PublicRegistration{Name: "Yuri", Email: "yury@x.io", Phone: "+7111", EventID: 5}, view)

	w, env = a.do(t, http.MethodGet, "/registrations/1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, string(env.Data), "password")
	require.NotContains(t, string(env.Data), "1234")

	w, _ = a.do(t, http.MethodPatch, "/registrations", gin.H{"id": reg.ID, "password": "1234", "phone": " "}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, env = a.do(t, http.MethodPatch, "/registrations", gin.H{"id": reg.ID, "password": "0000", "name": "Yuri"}, "")
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "Incorrect password for registration with id=1", env.Error)

	w, _ = a.do(t, http.MethodGet, "/registrations/99", nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w, _ = a.do(t, http.MethodGet, "/registrations/abc", nil, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Withdraw(t *testing.T) {
	a := newAPIFixture(t)
	reg := a.seed(t, models.Registration{EventID: 5, Status: models.StatusPending})

	w, _ := a.do(t, http.MethodDelete, "/registrations", gin.H{"id": reg.ID, "password": "1234"}, "")
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Nil(t, a.reload(t, reg.ID))

	w, _ = a.do(t, http.MethodDelete, "/registrations", gin.H{"id": reg.ID, "password": "1234"}, "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_ChangeStatus(t *testing.T) {
	a := newAPIFixture(t)
	reg := a.seed(t, models.Registration{EventID: 5, Name: "Ada", Status: models.StatusPending})
	a.events.On("GetEvent", mock.Anything, int64(5)).Return(futureEvent(5), nil)

	w, _ := a.do(t, http.MethodPatch, "/registrations/status", gin.H{"id": reg.ID, "status": "APPROVED"}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	owner := a.token(t, 100, models.RoleUser)
	w, env := a.do(t, http.MethodPatch, "/registrations/status", gin.H{"id": reg.ID, "status": "NOPE"}, owner)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Unknown status: NOPE", env.Error)

	w, _ = a.do(t, http.MethodPatch, "/registrations/status", gin.H{"id": reg.ID, "status": "REJECTED"}, owner)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, env = a.do(t, http.MethodPatch, "/registrations/status", gin.H{"id": reg.ID, "status": "REJECTED", "reason": "full"}, owner)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view models.StatusView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.Equal(t, models.StatusRejected, view.RegistrationStatus)
	require.Equal(t, "full", *view.Reason)

	w, _ = a.do(t, http.MethodPatch, "/registrations/status", gin.H{"id": reg.ID, "status": "APPROVED"}, owner)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestHandler_ChangeStatusForbidden(t *testing.T) {
	a := newAPIFixture(t)
	reg := a.seed(t, models.Registration{EventID: 5, Status: models.StatusPending})
	a.events.On("GetEvent", mock.Anything, int64(5)).Return(futureEvent(5), nil).Once()
	a.events.On("GetTeamMembers", mock.Anything, int64(5)).Return([]models.TeamMember{}, nil).Once()

	w, env := a.do(t, http.MethodPatch, "/registrations/status", gin.H{"id": reg.ID, "status": "APPROVED"}, a.token(t, 3, models.RoleUser))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "Requester (id=3) can't modify status of event (id=5).", env.Error)
}

func TestHandler_StatusQueries(t *testing.T) {
	a := newAPIFixture(t)
	for i := 0; i < 3; i++ {
		a.seed(t, models.Registration{EventID: 5, Status: models.StatusPending})
	}
	a.seed(t, models.Registration{EventID: 5, Status: models.StatusWaiting})

	w, env := a.do(t, http.MethodGet, "/registrations/status/count?eventId=5", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"PENDING":3,"WAITING":1}`, string(env.Data))

	w, env = a.do(t, http.MethodGet, "/registrations/status/5/total?status=PENDING,WAITING", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"count":4}`, string(env.Data))

	w, env = a.do(t, http.MethodGet, "/registrations/status/5?status=WAITING", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var views []models.StatusView
	require.NoError(t, json.Unmarshal(env.Data, &views))
	require.Len(t, views, 1)

	w, env = a.do(t, http.MethodGet, "/registrations/status/5", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[]`, string(env.Data))

	w, _ = a.do(t, http.MethodGet, "/registrations/status/5?status=LATE", nil, "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, env = a.do(t, http.MethodGet, "/registrations?eventId=5&page=0&size=2", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var page []models.PublicRegistration
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page, 2)

	w, env = a.do(t, http.MethodGet, "/registrations?eventId=5&page=92233720368547759&size=100", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[]`, string(env.Data))

	w, _ = a.do(t, http.MethodGet, "/registrations?eventId=0", nil, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_InternalStatusOf(t *testing.T) {
	a := newAPIFixture(t)
	a.seed(t, models.Registration{UserID: int64Ptr(9), EventID: 5, Status: models.StatusApproved})
	path := "/internal/registrations/status?eventId=5&userId=9"

	w, _ := a.do(t, http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = a.do(t, http.MethodGet, path, nil, a.token(t, 9, models.RoleUser))
	require.Equal(t, http.StatusForbidden, w.Code)

	w, env := a.do(t, http.MethodGet, path, nil, a.token(t, 1, models.RoleService))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"APPROVED"}`, string(env.Data))

	w, _ = a.do(t, http.MethodGet, "/internal/registrations/status?eventId=6&userId=9", nil, a.token(t, 1, models.RoleAdmin))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_InternalError(t *testing.T) {
	a := newAPIFixture(t)
	a.events.On("GetEvent", mock.Anything, int64(5)).Return(nil, context.DeadlineExceeded).Once()

	w, env := a.do(t, http.MethodPost, "/registrations", gin.H{
		"eventId": 5, "name": "Ada", "email": "ada@example.com", "phone": "+1",
	}, "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "create registration failed", env.Error)
}
