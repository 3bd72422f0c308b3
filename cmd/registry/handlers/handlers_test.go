package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/qldp/registry/cmd/registry/middleware"
	"github.com/qldp/registry/cmd/registry/service"
	"github.com/qldp/registry/common/codegen"
	"github.com/qldp/registry/common/config"
	"github.com/qldp/registry/common/filter"
	"github.com/qldp/registry/common/indexsync"
	"github.com/qldp/registry/common/logger"
	"github.com/qldp/registry/common/models"
	"github.com/qldp/registry/common/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	e     *echo.Echo
	store *repository.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := repository.NewMemoryStore()
	log := logger.Discard()
	evaluator, err := filter.NewEvaluator()
	require.NoError(t, err)

	households := NewHouseholdHandler(service.NewFamilyMemberService(store, log, nil), log)
	absents := NewTempAbsentHandler(service.NewTempAbsentService(store, codegen.New(),
		config.CodeConfig{Length: 8, MaxAttempts: 3}, evaluator, indexsync.Nop{}, log, nil), log)
	replies := NewReplyHandler(service.NewReplyService(store, nil, time.Minute, indexsync.Nop{}, log, nil), log)
	replies.now = func() time.Time { return time.Date(2024, 4, 3, 9, 0, 0, 0, time.UTC) }

	e := echo.New()
	e.Use(middleware.ExtractIdentity())
	e.POST("/api/v1/households/:id/members", households.AddMembers)
	e.GET("/api/v1/households/:id/members", households.ListMembers)
	e.GET("/api/v1/households/:id/history", households.GetHistory)
	e.POST("/api/v1/temp-absents", absents.CreateTempAbsent)
	e.GET("/api/v1/temp-absents", absents.ListTempAbsents)
	e.GET("/api/v1/temp-absents/:id", absents.GetTempAbsent)
	e.POST("/api/v1/replies", replies.CreateReply, middleware.ExtractIdentityStrict())
	e.GET("/api/v1/replies/:id", replies.GetReply)
	e.POST("/api/v1/replies/:id/accept", replies.AcceptReply)

	return &testServer{e: e, store: store}
}

func (s *testServer) do(t *testing.T, method, target, body string, header ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	}
	return rec, decoded
}

func TestHouseholdEndpoints(t *testing.T) {
	s := newTestServer(t)
	h := s.store.AddHousehold(models.Household{HouseholdCode: "H1"})
	p := s.store.AddPerson(models.Person{PeopleCode: "P1", FullName: "Nguyen Van A"})
	base := "/api/v1/households/" + strconv.FormatInt(h.ID, 10)

	body := `{"members":[{"id":` + strconv.FormatInt(p.ID, 10) + `,"host_relation":"host"}]}`
	rec, resp := s.do(t, http.MethodPost, base+"/members", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, resp["count"])

	rec, resp = s.do(t, http.MethodGet, base+"/members", "")
	require.Equal(t, http.StatusOK, rec.Code)
	members := resp["members"].([]any)
	require.Len(t, members, 1)
	person := members[0].(map[string]any)["person"].(map[string]any)
	assert.Equal(t, "Nguyen Van A", person["full_name"])

	rec, resp = s.do(t, http.MethodPost, base+"/members", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "person_already_in_household", resp["error"])

	rec, resp = s.do(t, http.MethodGet, base+"/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, resp["count"])
}

func TestHouseholdEndpoints_Errors(t *testing.T) {
	s := newTestServer(t)
	h := s.store.AddHousehold(models.Household{HouseholdCode: "H1"})
	base := "/api/v1/households/" + strconv.FormatInt(h.ID, 10)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
		code   string
	}{
		{"bad id", http.MethodGet, "/api/v1/households/abc/members", "", http.StatusBadRequest, "invalid_id"},
		{"unknown household", http.MethodGet, "/api/v1/households/999/history", "", http.StatusNotFound, "household_not_found"},
		{"empty batch", http.MethodPost, base + "/members", `{"members":[]}`, http.StatusBadRequest, "invalid_request"},
		{"unknown person", http.MethodPost, base + "/members", `{"members":[{"id":999}]}`, http.StatusNotFound, "person_not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := s.do(t, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, resp["error"])
		})
	}
}

func TestTempAbsentEndpoints(t *testing.T) {
	s := newTestServer(t)
	h := s.store.AddHousehold(models.Household{HouseholdCode: "H1"})
	p := s.store.AddPerson(models.Person{PeopleCode: "P1"})
	s.store.AddIDCard("A123", p.ID)
	s.store.AddFamilyMember(models.FamilyMember{PersonID: p.ID, HouseholdID: h.ID})

	rec, created := s.do(t, http.MethodPost, "/api/v1/temp-absents",
		`{"id_card_number":"A123","from":"2024-01-01","to":"2024-02-01","temp_residence_place":"Da Nang","reason":"work"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, created["code"], 8)
	id := strconv.FormatInt(int64(created["id"].(float64)), 10)

	rec, got := s.do(t, http.MethodGet, "/api/v1/temp-absents/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created["code"], got["code"])
	assert.Equal(t, "work", got["reason"])

	rec, list := s.do(t, http.MethodGet, "/api/v1/temp-absents?date=2024-01-15,&where="+`reason%20%3D%3D%20%22work%22`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, list["count"])

	rec, list = s.do(t, http.MethodGet, "/api/v1/temp-absents?date=2024-03-01,", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, list["count"])

	rec, history := s.do(t, http.MethodGet, "/api/v1/households/"+strconv.FormatInt(h.ID, 10)+"/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, history["count"])
}

func TestTempAbsentEndpoints_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
		code   string
	}{
		{"missing card", http.MethodPost, "/api/v1/temp-absents", `{"from":"2024-01-01","to":"2024-02-01"}`, http.StatusBadRequest, "invalid_request"},
		{"bad date", http.MethodPost, "/api/v1/temp-absents", `{"id_card_number":"A1","from":"01/01/2024","to":"2024-02-01"}`, http.StatusBadRequest, "invalid_date_interval"},
		{"reversed interval", http.MethodPost, "/api/v1/temp-absents", `{"id_card_number":"A1","from":"2024-03-01","to":"2024-02-01"}`, http.StatusBadRequest, "invalid_date_interval"},
		{"unknown card", http.MethodPost, "/api/v1/temp-absents", `{"id_card_number":"A1","from":"2024-01-01","to":"2024-02-01"}`, http.StatusNotFound, "person_not_found"},
		{"unknown id", http.MethodGet, "/api/v1/temp-absents/77", "", http.StatusNotFound, "temp_absent_not_found"},
		{"bad range", http.MethodGet, "/api/v1/temp-absents?date=2024-03-01,2024-01-01", "", http.StatusBadRequest, "invalid_date_range"},
		{"bad where", http.MethodGet, "/api/v1/temp-absents?where=reason", "", http.StatusBadRequest, "invalid_filter_expression"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := s.do(t, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, resp["error"])
		})
	}
}

func TestReplyEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.store.AddUser(models.User{Username: "officer", IdentityUID: "uid-officer"})
	petition := s.store.AddPetition(models.Petition{Body: models.ContentBody{
		Subject: "Noise", Status: models.StatusWaitForReply,
	}})
	body := `{"petition_id":` + strconv.FormatInt(petition.ID, 10) + `,"subject":"Re: Noise","content":"Handled"}`

	rec, resp := s.do(t, http.MethodPost, "/api/v1/replies", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "identity_required", resp["error"])

	rec, created := s.do(t, http.MethodPost, "/api/v1/replies", body, middleware.IdentityHeader, "uid-officer")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	replyBody := created["body"].(map[string]any)
	assert.Equal(t, "PENDING", replyBody["status"])
	assert.Equal(t, "2024-04-03T09:00:00Z", replyBody["date"])
	id := strconv.FormatInt(int64(created["id"].(float64)), 10)

	rec, got := s.do(t, http.MethodGet, "/api/v1/replies/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "officer", got["replier"].(map[string]any)["username"])

	rec, accepted := s.do(t, http.MethodPost, "/api/v1/replies/"+id+"/accept", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SENT_TO_USER", accepted["body"].(map[string]any)["status"])
	assert.Equal(t, "REPLIED", accepted["petition"].(map[string]any)["body"].(map[string]any)["status"])

	rec, resp = s.do(t, http.MethodPost, "/api/v1/replies/"+id+"/accept", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_reply_update_status", resp["error"])
	assert.Equal(t, "SENT_TO_USER", resp["status"])

	// the petition is no longer waiting for a reply
	rec, resp = s.do(t, http.MethodPost, "/api/v1/replies", body, middleware.IdentityHeader, "uid-officer")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_petition_status", resp["error"])
}

func TestReplyEndpoints_InvalidDate(t *testing.T) {
	s := newTestServer(t)
	s.store.AddUser(models.User{Username: "officer", IdentityUID: "uid-officer"})
	petition := s.store.AddPetition(models.Petition{Body: models.ContentBody{Status: models.StatusWaitForReply}})
	body := `{"petition_id":` + strconv.FormatInt(petition.ID, 10) + `,"date":"03/04/2024"}`

	rec, resp := s.do(t, http.MethodPost, "/api/v1/replies", body, middleware.IdentityHeader, "uid-officer")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_date", resp["error"])
}

func TestReplyEndpoints_NotFound(t *testing.T) {
	s := newTestServer(t)
	s.store.AddUser(models.User{Username: "officer", IdentityUID: "uid-officer"})

	rec, resp := s.do(t, http.MethodPost, "/api/v1/replies", `{"petition_id":404}`, middleware.IdentityHeader, "uid-officer")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "petition_not_found", resp["error"])

	// the petition is resolved before the replier
	rec, resp = s.do(t, http.MethodPost, "/api/v1/replies", `{"petition_id":404}`, middleware.IdentityHeader, "uid-stranger")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "petition_not_found", resp["error"])

	petition := s.store.AddPetition(models.Petition{Body: models.ContentBody{Status: models.StatusWaitForReply}})
	body := `{"petition_id":` + strconv.FormatInt(petition.ID, 10) + `}`
	rec, resp = s.do(t, http.MethodPost, "/api/v1/replies", body, middleware.IdentityHeader, "uid-stranger")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "user_not_found", resp["error"])

	rec, resp = s.do(t, http.MethodPost, "/api/v1/replies/404/accept", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "reply_not_found", resp["error"])
}
