package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/dukerupert/railinspect/export"
	"github.com/dukerupert/railinspect/mock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignup(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/auth/signup", "", SignupRequest{
		Email:    "inspector@example.com",
		FullName: "Asha Rao",
		Password: "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	profile := decode[railinspect.Profile](t, rec)
	assert.Equal(t, railinspect.ProfileStatusPending, profile.Status)
	assert.Equal(t, railinspect.RoleInspector, profile.Role)

	rec = ts.do(t, http.MethodPost, "/api/auth/signup", "", SignupRequest{
		Email:    "inspector@example.com",
		FullName: "Asha Rao",
		Password: "short",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Contains(t, resp.Fields, "password")

	rec = ts.do(t, http.MethodPost, "/api/auth/signup", "", SignupRequest{
		Email:    "not-an-email",
		FullName: "Asha Rao",
		Password: "correct-horse",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp = decode[ErrorResponse](t, rec)
	assert.Equal(t, "must be a valid email address", resp.Fields["email"])
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	approved := &railinspect.Profile{ID: uuid.New(), Email: "a@example.com", Role: railinspect.RoleInspector, Status: railinspect.ProfileStatusApproved}

	ts.profiles.VerifyPasswordFn = func(_ context.Context, email, _ string) (*railinspect.Profile, error) {
		switch email {
		case approved.Email:
			return approved, nil
		case "pending@example.com":
			return nil, railinspect.Forbidden("Your account is awaiting approval")
		}
		return nil, railinspect.Unauthorized("Invalid email or password")
	}

	rec := ts.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: approved.Email, Password: "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[LoginResponse](t, rec)
	assert.Equal(t, approved.ID, resp.Profile.ID)
	assert.NotEmpty(t, resp.Token)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "pending@example.com", Password: "correct-horse"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "who@example.com", Password: "correct-horse"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthentication(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/auth/me", "unknown-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	pending := &railinspect.Profile{ID: uuid.New(), Role: railinspect.RoleInspector, Status: railinspect.ProfileStatusPending}
	ts.tokens["pending"] = pending
	rec = ts.do(t, http.MethodGet, "/api/auth/me", "pending", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	profile, token := ts.login(railinspect.RoleInspector)
	rec = ts.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, profile.ID, decode[railinspect.Profile](t, rec).ID)
}

func TestAuthentication_StoreFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.sessions.FindSessionByTokenFn = func(context.Context, string) (*railinspect.Session, error) {
		return nil, errors.New("connection refused")
	}

	rec := ts.do(t, http.MethodGet, "/api/auth/me", "any", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProfiles_RequireManager(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.login(railinspect.RoleInspector)

	rec := ts.do(t, http.MethodGet, "/api/profiles?status=pending", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestProfiles_List(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.login(railinspect.RoleManager)

	var got railinspect.ProfileFilter
	ts.profiles.FindProfilesFn = func(_ context.Context, f railinspect.ProfileFilter) ([]*railinspect.Profile, int, error) {
		got = f
		return []*railinspect.Profile{{ID: uuid.New(), Status: railinspect.ProfileStatusPending}}, 1, nil
	}

	rec := ts.do(t, http.MethodGet, "/api/profiles?status=pending", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, got.Status)
	assert.Equal(t, railinspect.ProfileStatusPending, *got.Status)
	assert.Equal(t, 1, decode[ListResponse[railinspect.Profile]](t, rec).Total)

	rec = ts.do(t, http.MethodGet, "/api/profiles?status=bogus", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfiles_ApproveQueuesEmail(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.login(railinspect.RoleManager)
	applicant := uuid.New()

	ts.profiles.ReviewProfileFn = func(_ context.Context, id uuid.UUID, status railinspect.ProfileStatus, reason string) (*railinspect.Profile, error) {
		return &railinspect.Profile{ID: id, Status: status, StatusReason: reason}, nil
	}

	rec := ts.do(t, http.MethodPost, "/api/profiles/"+applicant.String()+"/approve", token, ReviewProfileRequest{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, railinspect.ProfileStatusApproved, decode[railinspect.Profile](t, rec).Status)

	job, err := ts.queue.Dequeue(context.Background(), railinspect.QueueCritical)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, railinspect.JobTypeSignupDecision, job.JobType)
	assert.Equal(t, []string{railinspect.AuditProfileReviewed}, ts.audits.Actions())
}

func TestProfiles_RejectNeedsReason(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.login(railinspect.RoleManager)
	called := false
	ts.profiles.ReviewProfileFn = func(_ context.Context, id uuid.UUID, status railinspect.ProfileStatus, reason string) (*railinspect.Profile, error) {
		called = true
		return &railinspect.Profile{ID: id, Status: status}, nil
	}

	rec := ts.do(t, http.MethodPost, "/api/profiles/"+uuid.NewString()+"/reject", token, ReviewProfileRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)
}

func TestReports_CreateReturnsDayDraft(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.login(railinspect.RoleInspector)

	rec := ts.do(t, http.MethodPost, "/api/reports", token, ReportFieldsRequest{TrainNumber: "12951"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[railinspect.TripReport](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/reports", token, ReportFieldsRequest{TrainNumber: "12952"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first.ID, decode[railinspect.TripReport](t, rec).ID)
}

func TestReports_Access(t *testing.T) {
	ts := newTestServer(t)
	owner, ownerToken := ts.login(railinspect.RoleInspector)
	_, otherToken := ts.login(railinspect.RoleInspector)
	_, managerToken := ts.login(railinspect.RoleManager)
	report := ts.draft(owner)
	path := "/api/reports/" + report.ID.String()

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, path, ownerToken, nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, path, managerToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodGet, path, otherToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodDelete, path, otherToken, nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/reports/not-a-uuid", ownerToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/reports/"+uuid.NewString(), ownerToken, nil).Code)

	rec := ts.do(t, http.MethodGet, "/api/reports", otherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[ListResponse[railinspect.TripReport]](t, rec).Total)

	rec = ts.do(t, http.MethodGet, "/api/reports?inspectorId="+owner.ID.String(), managerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[ListResponse[railinspect.TripReport]](t, rec).Total)
}

func TestReports_UpdateAndDelete(t *testing.T) {
	ts := newTestServer(t)
	owner, token := ts.login(railinspect.RoleInspector)
	report := ts.draft(owner)
	path := "/api/reports/" + report.ID.String()

	location := "Howrah"
	rec := ts.do(t, http.MethodPatch, path, token, UpdateReportRequest{Location: &location})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Howrah", decode[railinspect.TripReport](t, rec).Location)

	rec = ts.do(t, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, path, token, nil).Code)
}

func TestChecklist_Degraded(t *testing.T) {
	ts := newTestServerWith(t, &mock.ChecklistService{
		FindSectionsFn: func(context.Context) ([]*railinspect.Section, error) {
			return nil, errors.New("connection refused")
		},
	})
	owner, token := ts.login(railinspect.RoleInspector)

	rec := ts.do(t, http.MethodGet, "/api/checklist", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ChecklistResponse](t, rec)
	assert.True(t, resp.Degraded)
	assert.NotEmpty(t, resp.Message)
	assert.NotEmpty(t, resp.Sections)

	report := ts.draft(owner)
	rec = ts.do(t, http.MethodPost, "/api/reports/"+report.ID.String()+"/reconcile", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReconcile(t *testing.T) {
	ts := newTestServer(t)
	owner, token := ts.login(railinspect.RoleInspector)
	report := ts.draft(owner)

	rec := ts.do(t, http.MethodPost, "/api/reports/"+report.ID.String()+"/reconcile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ReconcileResponse](t, rec)
	assert.Equal(t, 2, resp.Created)
	assert.Equal(t, []string{"act-1", "act-2"}, resp.Missing)
	assert.Equal(t, 2, ts.results.Len(report.ID))

	rec = ts.do(t, http.MethodPost, "/api/reports/"+report.ID.String()+"/reconcile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[ReconcileResponse](t, rec).Created)
}

func TestSetCheckStatus(t *testing.T) {
	ts := newTestServer(t)
	owner, token := ts.login(railinspect.RoleInspector)
	report := ts.draft(owner)
	base := "/api/reports/" + report.ID.String() + "/activities/"

	rec := ts.do(t, http.MethodPut, base+"act-1/status", token, SetCheckStatusRequest{CheckStatus: "ok"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[MutationResponse](t, rec)
	assert.True(t, resp.Persisted)
	assert.Nil(t, resp.Error)
	require.NotNil(t, resp.Result)
	assert.Equal(t, railinspect.CheckStatusOK, resp.Result.CheckStatus)

	rec = ts.do(t, http.MethodPut, base+"act-1/status", token, SetCheckStatusRequest{CheckStatus: "broken"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, base+"act-404/status", token, SetCheckStatusRequest{CheckStatus: "ok"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPut, base+"act-2/remarks", token, SetRemarksRequest{Remarks: "Spring cracked"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[MutationResponse](t, rec).Persisted)

	_, otherToken := ts.login(railinspect.RoleInspector)
	rec = ts.do(t, http.MethodPut, base+"act-1/status", otherToken, SetCheckStatusRequest{CheckStatus: "not_ok"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSetCheckStatus_PersistenceFailureIsReported(t *testing.T) {
	ts := newTestServer(t)
	owner, token := ts.login(railinspect.RoleInspector)
	report := ts.draft(owner)

	// Open the editor while the store is healthy.
	rec := ts.do(t, http.MethodGet, "/api/reports/"+report.ID.String()+"/checklist", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	ts.results.UpsertCheckStatusFn = func(context.Context, uuid.UUID, string, railinspect.CheckStatus, uuid.UUID) (*railinspect.ActivityResult, error) {
		return nil, errors.New("write timeout")
	}

	rec = ts.do(t, http.MethodPut, "/api/reports/"+report.ID.String()+"/activities/act-1/status", token, SetCheckStatusRequest{CheckStatus: "not_ok"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[MutationResponse](t, rec)
	assert.False(t, resp.Persisted)
	require.NotNil(t, resp.Error)
	assert.Equal(t, railinspect.EPERSISTENCE, resp.Error.Error)
	assert.Equal(t, "not_ok", resp.Value)

	// Re-sending the same request once the store recovers saves the edit.
	ts.results.UpsertCheckStatusFn = nil
	rec = ts.do(t, http.MethodPut, "/api/reports/"+report.ID.String()+"/activities/act-1/status", token, SetCheckStatusRequest{CheckStatus: "not_ok"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[MutationResponse](t, rec).Persisted)

	stored, err := ts.results.FindResult(context.Background(), report.ID, "act-1")
	require.NoError(t, err)
	assert.Equal(t, railinspect.CheckStatusNotOK, stored.CheckStatus)
}

func TestSetCheckStatus_SubmittedElsewhereIsRejected(t *testing.T) {
	ts := newTestServer(t)
	owner, token := ts.login(railinspect.RoleInspector)
	report := ts.draft(owner)
	path := "/api/reports/" + report.ID.String()

	rec := ts.do(t, http.MethodGet, path+"/checklist", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, err := ts.reports.SubmitReport(context.Background(), report.ID, railinspect.ReportFields{TrainNumber: "12951", Location: "Pune"}, time.Now())
	require.NoError(t, err)

	rec = ts.do(t, http.MethodPut, path+"/activities/act-1/status", token, SetCheckStatusRequest{CheckStatus: "ok"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	stored, err := ts.results.FindResult(context.Background(), report.ID, "act-1")
	require.NoError(t, err)
	assert.Equal(t, railinspect.CheckStatusPending, stored.CheckStatus)
}

func TestSubmitFlow(t *testing.T) {
	ts := newTestServer(t)
	owner, token := ts.login(railinspect.RoleInspector)
	_, managerToken := ts.login(railinspect.RoleManager)
	report := ts.draft(owner)
	path := "/api/reports/" + report.ID.String()
	fields := ReportFieldsRequest{TrainNumber: "12951", Location: "Mumbai Central"}

	rec := ts.do(t, http.MethodPost, path+"/submit", token, SubmitReportRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, path+"/submit", token, SubmitReportRequest{Fields: fields})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[struct {
		Submitted         bool `json:"submitted"`
		NeedsConfirmation bool `json:"needsConfirmation"`
	}](t, rec)
	assert.False(t, out.Submitted)
	assert.True(t, out.NeedsConfirmation)

	rec = ts.do(t, http.MethodPost, path+"/submit-form", token, SubmitReportRequest{Fields: fields, Confirmed: true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, path+"/submit", token, SubmitReportRequest{Fields: fields, Confirmed: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[struct {
		Submitted bool `json:"submitted"`
	}](t, rec).Submitted)

	rec = ts.do(t, http.MethodPost, path+"/review", token, ReviewReportRequest{Decision: "approved"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, path+"/review", managerToken, ReviewReportRequest{Decision: "approved", Notes: "Good"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, railinspect.ReportStatusApproved, decode[railinspect.TripReport](t, rec).Status)

	assert.Equal(t, []string{railinspect.AuditReportSubmitted, railinspect.AuditReportReviewed}, ts.audits.Actions())

	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodGet, path+"/audit", token, nil).Code)
	rec = ts.do(t, http.MethodGet, path+"/audit", managerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	trail := decode[[]railinspect.AuditEntry](t, rec)
	require.Len(t, trail, 2)
	require.NotNil(t, trail[1].ActorID)
	assert.Equal(t, owner.ID, *trail[1].ActorID)

	rec = ts.do(t, http.MethodGet, path+"/audit?format=csv", managerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Body.String(), railinspect.AuditReportReviewed)
}

func TestExport(t *testing.T) {
	ts := newTestServer(t)
	owner, token := ts.login(railinspect.RoleInspector)
	_, otherToken := ts.login(railinspect.RoleInspector)
	report := ts.draft(owner)
	path := "/api/reports/" + report.ID.String()

	rec := ts.do(t, http.MethodGet, path+"/html", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Check frame")

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, path+"/document", token, nil).Code)

	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodGet, path+"/html", otherToken, nil).Code)

	rec = ts.do(t, http.MethodPost, path+"/pdf", token, GeneratePDFRequest{Recipients: []string{"depot@example.com"}})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	job := decode[JobResponse](t, rec)
	assert.Equal(t, railinspect.JobTypeReportGeneration, job.JobType)

	rec = ts.do(t, http.MethodGet, "/api/jobs/"+job.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, railinspect.JobStatusPending, decode[JobResponse](t, rec).Status)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/jobs/"+job.ID.String(), otherToken, nil).Code)

	// Run the job the way the worker pool does.
	queued, err := ts.queue.Dequeue(context.Background(), railinspect.QueueDefault)
	require.NoError(t, err)
	require.NotNil(t, queued)
	require.NoError(t, ts.exporter.Handle(context.Background(), queued))

	var doc export.Document
	require.NoError(t, json.Unmarshal(queued.Result, &doc))
	assert.Equal(t, railinspect.ContentTypeHTML, doc.ContentType)
	_, ok := ts.storage.File(doc.Key)
	assert.True(t, ok)

	rec = ts.do(t, http.MethodGet, path+"/document", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	published := decode[export.Document](t, rec)
	assert.Equal(t, doc.Key, published.Key)
	assert.Equal(t, railinspect.ContentTypeHTML, published.ContentType)
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodGet, path+"/document", otherToken, nil).Code)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, path+"/pdf", token, GeneratePDFRequest{Recipients: []string{"nope"}}).Code)
}

func TestCancelJob(t *testing.T) {
	ts := newTestServer(t)
	owner, token := ts.login(railinspect.RoleInspector)
	_, otherToken := ts.login(railinspect.RoleInspector)
	report := ts.draft(owner)

	rec := ts.do(t, http.MethodPost, "/api/reports/"+report.ID.String()+"/pdf", token, GeneratePDFRequest{})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	job := decode[JobResponse](t, rec)

	// Same request while pending returns the queued job.
	rec = ts.do(t, http.MethodPost, "/api/reports/"+report.ID.String()+"/pdf", token, GeneratePDFRequest{})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, job.ID, decode[JobResponse](t, rec).ID)

	jobPath := "/api/jobs/" + job.ID.String()
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, jobPath, otherToken, nil).Code)

	rec = ts.do(t, http.MethodDelete, jobPath, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, railinspect.JobStatusCancelled, decode[JobResponse](t, rec).Status)

	assert.Equal(t, http.StatusConflict, ts.do(t, http.MethodDelete, jobPath, token, nil).Code)
}
