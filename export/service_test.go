package export

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/dukerupert/railinspect/inspection"
	"github.com/dukerupert/railinspect/mock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPrinter struct {
	pdf []byte
	err error
}

func (p stubPrinter) PrintPDF(ctx context.Context, html string) ([]byte, error) {
	return p.pdf, p.err
}

type serviceFixture struct {
	reports *mock.TripReportService
	results *mock.ResultService
	storage *mock.FileStorage
	email   *mock.EmailService
	report  *railinspect.TripReport
	loader  *inspection.Loader
	logger  *slog.Logger
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fallback, err := inspection.LoadFallback("")
	require.NoError(t, err)

	f := &serviceFixture{
		reports: &mock.TripReportService{},
		results: mock.NewResultService(),
		storage: &mock.FileStorage{},
		email:   &mock.EmailService{},
		logger:  logger,
	}
	checklists := &mock.ChecklistService{Sections: testSections()}
	f.loader = inspection.NewLoader(checklists, f.results, inspection.NopCache{}, fallback, logger)

	f.report = testReport()
	f.reports.Put(f.report)
	f.results.Put(&railinspect.ActivityResult{TripReportID: f.report.ID, ActivityID: "a10", CheckStatus: railinspect.CheckStatusOK})
	return f
}

func (f *serviceFixture) service(printer Printer) *Service {
	return NewService(f.reports, &mock.ProfileService{}, f.loader, f.storage, f.email, printer, time.UTC, f.logger)
}

func TestGeneratePDF(t *testing.T) {
	f := newServiceFixture(t)
	svc := f.service(stubPrinter{pdf: []byte("%PDF-1.7")})

	doc, err := svc.Generate(context.Background(), f.report.ID)
	require.NoError(t, err)
	assert.Equal(t, railinspect.ContentTypePDF, doc.ContentType)
	assert.Equal(t, railinspect.ReportDocumentKey(f.report.ID.String(), "pdf"), doc.Key)
	assert.Equal(t, "12951", doc.TrainNumber)

	data, ok := f.storage.File(doc.Key)
	require.True(t, ok)
	assert.Equal(t, "%PDF-1.7", string(data))
}

func TestGenerateFallsBackToHTML(t *testing.T) {
	f := newServiceFixture(t)
	svc := f.service(NopPrinter{})

	doc, err := svc.Generate(context.Background(), f.report.ID)
	require.NoError(t, err)
	assert.Equal(t, railinspect.ContentTypeHTML, doc.ContentType)

	data, ok := f.storage.File(doc.Key)
	require.True(t, ok)
	assert.Contains(t, string(data), "Ventilator covers secure")
}

func TestGeneratePrinterError(t *testing.T) {
	f := newServiceFixture(t)
	svc := f.service(stubPrinter{err: errors.New("chrome crashed")})

	_, err := svc.Generate(context.Background(), f.report.ID)
	assert.Equal(t, railinspect.EINTERNAL, railinspect.ErrorCode(err))
}

func TestRenderReportAccess(t *testing.T) {
	f := newServiceFixture(t)
	svc := f.service(NopPrinter{})
	stranger := railinspect.NewContextWithProfile(context.Background(), &railinspect.Profile{ID: uuid.New(), Role: railinspect.RoleInspector})

	_, _, err := svc.RenderReport(stranger, f.report.ID)
	assert.Equal(t, railinspect.EFORBIDDEN, railinspect.ErrorCode(err))

	_, _, err = svc.RenderReport(context.Background(), uuid.New())
	assert.Equal(t, railinspect.ENOTFOUND, railinspect.ErrorCode(err))
}

func TestHandleReportJob(t *testing.T) {
	f := newServiceFixture(t)
	svc := f.service(stubPrinter{pdf: []byte("%PDF")})

	payload, err := json.Marshal(ReportJobPayload{Recipients: []string{"depot@example.com"}})
	require.NoError(t, err)
	job := &railinspect.Job{ID: uuid.New(), JobType: railinspect.JobTypeReportGeneration, ReportID: f.report.ID, Payload: payload}

	require.NoError(t, svc.Handle(context.Background(), job))

	var doc Document
	require.NoError(t, json.Unmarshal(job.Result, &doc))
	assert.Equal(t, f.report.ID, doc.ReportID)
	require.Equal(t, 1, f.email.SentCount())
	assert.Equal(t, doc.URL, f.email.Sent[0].URL)
}

func TestHandleReportJobBadPayload(t *testing.T) {
	f := newServiceFixture(t)
	svc := f.service(NopPrinter{})

	job := &railinspect.Job{ID: uuid.New(), ReportID: f.report.ID, Payload: []byte("{")}
	assert.Error(t, svc.Handle(context.Background(), job))
}

func TestEnqueueReport(t *testing.T) {
	f := newServiceFixture(t)
	svc := f.service(NopPrinter{})

	var enqueued *railinspect.Job
	queue := &recordingQueue{enqueue: func(job *railinspect.Job) { enqueued = job }}

	job, err := svc.EnqueueReport(context.Background(), queue, f.report.ID, nil)
	require.NoError(t, err)
	assert.Same(t, job, enqueued)
	assert.Equal(t, railinspect.JobTypeReportGeneration, job.JobType)
	assert.Equal(t, 3, job.MaxAttempts)
}

func TestEnqueueReport_ReusesPendingJob(t *testing.T) {
	f := newServiceFixture(t)
	svc := f.service(NopPrinter{})

	var count int
	queue := &recordingQueue{enqueue: func(*railinspect.Job) { count++ }}
	ctx := context.Background()

	first, err := svc.EnqueueReport(ctx, queue, f.report.ID, []string{"depot@example.com"})
	require.NoError(t, err)
	again, err := svc.EnqueueReport(ctx, queue, f.report.ID, []string{"depot@example.com"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	other, err := svc.EnqueueReport(ctx, queue, f.report.ID, []string{"yard@example.com"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
	assert.Equal(t, 2, count)
}

// recordingQueue captures enqueued jobs and reports them as pending.
type recordingQueue struct {
	railinspect.Queue
	enqueue func(job *railinspect.Job)
	jobs    []*railinspect.Job
}

func (q *recordingQueue) Enqueue(ctx context.Context, job *railinspect.Job, opts ...railinspect.EnqueueOption) error {
	railinspect.ApplyEnqueueOptions(job, opts...)
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.Status = railinspect.JobStatusPending
	q.jobs = append(q.jobs, job)
	q.enqueue(job)
	return nil
}

func (q *recordingQueue) GetPendingJobs(ctx context.Context, reportID uuid.UUID, queueName string) ([]*railinspect.Job, error) {
	var out []*railinspect.Job
	for _, job := range q.jobs {
		if job.ReportID == reportID && job.QueueName == queueName && job.Status == railinspect.JobStatusPending {
			out = append(out, job)
		}
	}
	return out, nil
}
