package inspection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Field names a single persisted column of an activity result.
type Field string

const (
	FieldCheckStatus Field = "check_status"
	FieldRemarks     Field = "remarks"
)

// Mutation is one edit of one activity result. The in-memory tree is
// updated before persistence is attempted and is never rolled back, so a
// failed mutation can be re-issued with Retry.
type Mutation struct {
	ActivityID string `json:"activityId"`
	Field      Field  `json:"field"`
	Value      string `json:"value"`

	// Persisted is set when the store holds Value after the write.
	Persisted bool `json:"persisted"`

	// Skipped is set for fallback activities that have no stored row.
	Skipped bool `json:"skipped"`

	// Corrected is set when read-back found a mismatch and a single
	// corrective write was issued.
	Corrected bool `json:"corrected"`

	// Result is the stored row after a successful write.
	Result *railinspect.ActivityResult `json:"result,omitempty"`

	// Err is the EPERSISTENCE error of a failed write.
	Err error `json:"-"`

	editor      *Editor
	inspectorID uuid.UUID
}

// Retry re-issues the same write. It is a no-op for skipped or already
// persisted mutations. A mutation whose value has since been replaced in the
// tree by a later edit is not re-issued.
func (m *Mutation) Retry(ctx context.Context) *Mutation {
	if m.Skipped || m.Persisted || m.editor == nil {
		return m
	}
	m.editor.writeMu.Lock()
	defer m.editor.writeMu.Unlock()

	if m.editor.currentValue(m.ActivityID, m.Field) != m.Value {
		m.Err = railinspect.Conflict("A later change replaced this edit")
		return m
	}

	m.Err = nil
	m.Corrected = false
	m.editor.persist(ctx, m)
	return m
}

// Editor owns the in-memory checklist of one report and writes result
// changes through to the store. Writes of one editor are serialised.
type Editor struct {
	reportID uuid.UUID
	results  railinspect.ResultService
	loader   *Loader
	logger   *slog.Logger

	// writeMu serialises mutations; mu guards report, tree and closed.
	writeMu sync.Mutex
	mu      sync.RWMutex
	report  *railinspect.TripReport
	tree    *railinspect.Checklist

	// closed is set once the store refused a write because the report is
	// no longer a draft.
	closed bool
}

// NewEditor creates an editor over a report and its loaded tree. The editor
// takes ownership of tree.
func NewEditor(report *railinspect.TripReport, tree *railinspect.Checklist, results railinspect.ResultService, loader *Loader, logger *slog.Logger) *Editor {
	return &Editor{
		reportID: report.ID,
		results:  results,
		loader:   loader,
		logger:   logger.With(slog.String("report_id", report.ID.String())),
		report:   report,
		tree:     tree,
	}
}

// ReportID returns the id of the edited report.
func (e *Editor) ReportID() uuid.UUID {
	return e.reportID
}

// Report returns a copy of the edited report.
func (e *Editor) Report() *railinspect.TripReport {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r := *e.report
	return &r
}

// SetStatus records a lifecycle change made outside the editor so further
// edits of a non-draft report are refused.
func (e *Editor) SetStatus(status railinspect.ReportStatus) {
	e.mu.Lock()
	e.report.Status = status
	e.mu.Unlock()
}

// SetReport replaces the editor's copy of the report after its form fields
// were updated in the store.
func (e *Editor) SetReport(report *railinspect.TripReport) {
	r := *report
	e.mu.Lock()
	e.report = &r
	e.mu.Unlock()
}

// SetCheckStatus sets an activity's check status.
func (e *Editor) SetCheckStatus(ctx context.Context, activityID string, status railinspect.CheckStatus) (*Mutation, error) {
	if !status.IsValid() {
		return nil, railinspect.ErrorWithFields(map[string]string{
			"checkStatus": "Check status must be pending, ok or not_ok",
		})
	}
	return e.mutate(ctx, activityID, FieldCheckStatus, string(status))
}

// SetRemarks sets an activity's remarks.
func (e *Editor) SetRemarks(ctx context.Context, activityID string, remarks string) (*Mutation, error) {
	return e.mutate(ctx, activityID, FieldRemarks, remarks)
}

func (e *Editor) mutate(ctx context.Context, activityID string, field Field, value string) (*Mutation, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	e.mu.Lock()
	if err := e.authorize(ctx); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if !e.report.Status.IsEditable() {
		e.mu.Unlock()
		return nil, railinspect.Invalid("Report is %s and can no longer be edited", e.report.Status)
	}
	if e.closed {
		e.mu.Unlock()
		return nil, railinspect.Invalid("Report can no longer be edited")
	}
	activity := e.tree.FindActivity(activityID)
	if activity == nil {
		e.mu.Unlock()
		return nil, railinspect.NotFound("Activity not found")
	}

	if activity.Result == nil {
		activity.Result = &railinspect.ActivityResult{
			TripReportID: e.reportID,
			ActivityID:   activityID,
			CheckStatus:  railinspect.CheckStatusPending,
		}
	}
	applyField(activity.Result, field, value)
	inspectorID := e.report.InspectorID
	e.mu.Unlock()

	if actor := railinspect.ProfileIDFromContext(ctx); actor != uuid.Nil {
		inspectorID = actor
	}

	m := &Mutation{
		ActivityID:  activityID,
		Field:       field,
		Value:       value,
		editor:      e,
		inspectorID: inspectorID,
	}
	if railinspect.IsLocalID(activityID) {
		m.Skipped = true
		return m, nil
	}

	e.persist(ctx, m)
	if railinspect.IsErrorCode(m.Err, railinspect.EINVALID) {
		return nil, m.Err
	}
	return m, nil
}

// authorize requires the acting profile, when present, to be allowed to
// edit the report. Callers without a profile in context are trusted system
// callers.
func (e *Editor) authorize(ctx context.Context) error {
	profile := railinspect.ProfileFromContext(ctx)
	if profile == nil || profile.CanEditReport(e.report) {
		return nil
	}
	return railinspect.Forbidden("Only the report's inspector can edit it")
}

// persist writes one field, reads it back and issues at most one
// corrective write. Callers hold writeMu.
func (e *Editor) persist(ctx context.Context, m *Mutation) {
	stored, err := e.write(ctx, m)
	if err != nil {
		e.fail(ctx, m, err)
		return
	}

	readBack, err := e.results.FindResult(ctx, e.reportID, m.ActivityID)
	switch {
	case err != nil:
		e.logger.WarnContext(ctx, "result read-back failed",
			slog.String("activity_id", m.ActivityID),
			slog.String("error", err.Error()))
	case fieldValue(readBack, m.Field) != m.Value:
		e.logger.WarnContext(ctx, "result read-back mismatch, correcting",
			slog.String("activity_id", m.ActivityID),
			slog.String("field", string(m.Field)))
		resultCorrectionsTotal.WithLabelValues(string(m.Field)).Inc()
		m.Corrected = true

		stored, err = e.write(ctx, m)
		if err != nil {
			e.fail(ctx, m, err)
			return
		}
		if fieldValue(stored, m.Field) != m.Value {
			e.fail(ctx, m, railinspect.PersistenceFailed("Stored value did not match after correction", nil))
			return
		}
	default:
		stored = readBack
	}

	m.Persisted = true
	m.Result = stored

	e.mu.Lock()
	if activity := e.tree.FindActivity(m.ActivityID); activity != nil && activity.Result != nil {
		activity.Result.ID = stored.ID
		activity.Result.UpdatedAt = stored.UpdatedAt
	}
	e.mu.Unlock()

	if e.loader != nil {
		e.loader.Invalidate(ctx, e.reportID)
	}
}

// matches reports whether the editor is still open and agrees with the
// stored status of its report.
func (e *Editor) matches(stored *railinspect.TripReport) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed && e.report.Status == stored.Status
}

func (e *Editor) currentValue(activityID string, field Field) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if activity := e.tree.FindActivity(activityID); activity != nil {
		return fieldValue(activity.Result, field)
	}
	return ""
}

func (e *Editor) write(ctx context.Context, m *Mutation) (*railinspect.ActivityResult, error) {
	switch m.Field {
	case FieldCheckStatus:
		return e.results.UpsertCheckStatus(ctx, e.reportID, m.ActivityID, railinspect.CheckStatus(m.Value), m.inspectorID)
	default:
		return e.results.UpsertRemarks(ctx, e.reportID, m.ActivityID, m.Value, m.inspectorID)
	}
}

func (e *Editor) fail(ctx context.Context, m *Mutation, err error) {
	resultPersistFailuresTotal.WithLabelValues(string(m.Field)).Inc()
	e.logger.ErrorContext(ctx, "failed to persist activity result",
		slog.String("activity_id", m.ActivityID),
		slog.String("field", string(m.Field)),
		slog.String("error", err.Error()))

	switch railinspect.ErrorCode(err) {
	case railinspect.EINVALID:
		m.Err = err
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()
	case railinspect.EFORBIDDEN, railinspect.EPERSISTENCE:
		m.Err = err
	default:
		m.Err = railinspect.PersistenceFailed("Activity result could not be saved", err)
	}
}

// Snapshot is a point-in-time copy of an editor's state.
type Snapshot struct {
	Report    *railinspect.TripReport  `json:"report"`
	Checklist *railinspect.Checklist   `json:"checklist"`
	Counts    railinspect.StatusCounts `json:"counts"`
	Percent   int                      `json:"percent"`
}

// Snapshot returns a deep copy of the tree with its counts.
func (e *Editor) Snapshot() *Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	report := *e.report
	tree := e.tree.Clone()
	counts := tree.Counts()
	return &Snapshot{
		Report:    &report,
		Checklist: tree,
		Counts:    counts,
		Percent:   counts.Percent(),
	}
}

func applyField(r *railinspect.ActivityResult, field Field, value string) {
	switch field {
	case FieldCheckStatus:
		r.CheckStatus = railinspect.CheckStatus(value)
	case FieldRemarks:
		r.Remarks = value
	}
}

func fieldValue(r *railinspect.ActivityResult, field Field) string {
	if r == nil {
		return ""
	}
	switch field {
	case FieldCheckStatus:
		return string(r.CheckStatus)
	default:
		return r.Remarks
	}
}

// DefaultEditorIdleTTL is how long an unused editor stays registered.
const DefaultEditorIdleTTL = 30 * time.Minute

// Editors hands out one Editor per report. Editors that are not used for
// the idle TTL are dropped and rebuilt from the store on next use.
type Editors struct {
	reports    railinspect.TripReportService
	results    railinspect.ResultService
	loader     *Loader
	reconciler *Reconciler
	logger     *slog.Logger

	mu      sync.Mutex
	editors *cache.Cache
	ttl     time.Duration
}

// NewEditors creates an editor registry.
func NewEditors(reports railinspect.TripReportService, results railinspect.ResultService, loader *Loader, reconciler *Reconciler, idleTTL time.Duration, logger *slog.Logger) *Editors {
	if idleTTL <= 0 {
		idleTTL = DefaultEditorIdleTTL
	}
	return &Editors{
		reports:    reports,
		results:    results,
		loader:     loader,
		reconciler: reconciler,
		logger:     logger,
		editors:    cache.New(idleTTL, idleTTL*2),
		ttl:        idleTTL,
	}
}

// Open returns the editor of a report, building it on first use. Drafts
// are reconciled before the tree is loaded. The acting profile must own
// the report or be allowed to review it. A registered editor is reused only
// while its status matches the stored report.
func (r *Editors) Open(ctx context.Context, reportID uuid.UUID) (*Editor, error) {
	report, err := r.reports.FindReportByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if err := canView(ctx, report); err != nil {
		return nil, err
	}

	if ed := r.lookup(reportID); ed != nil {
		if ed.matches(report) {
			ed.SetReport(report)
			return ed, nil
		}
		r.Drop(reportID)
	}

	if report.Status.IsEditable() {
		checklist, err := r.loader.Load(ctx)
		if err != nil {
			return nil, err
		}
		if !checklist.Degraded {
			if _, err := r.reconciler.Reconcile(ctx, reportID, report.InspectorID, checklist); err != nil {
				r.logger.WarnContext(ctx, "reconcile before edit failed",
					slog.String("report_id", reportID.String()),
					slog.String("error", err.Error()))
			}
		}
	}

	tree, err := r.loader.LoadForReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	ed := NewEditor(report, tree, r.results, r.loader, r.logger)

	// Degraded editors are not kept so the next open retries the store.
	if tree.Degraded {
		return ed, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.editors.Get(reportID.String()); ok {
		return existing.(*Editor), nil
	}
	r.editors.SetDefault(reportID.String(), ed)
	return ed, nil
}

func (r *Editors) lookup(reportID uuid.UUID) *Editor {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.editors.Get(reportID.String())
	if !ok {
		return nil
	}
	r.editors.SetDefault(reportID.String(), v)
	return v.(*Editor)
}

// Get returns the registered editor of a report, or nil.
func (r *Editors) Get(reportID uuid.UUID) *Editor {
	return r.lookup(reportID)
}

// Drop removes a report's editor.
func (r *Editors) Drop(reportID uuid.UUID) {
	r.mu.Lock()
	r.editors.Delete(reportID.String())
	r.mu.Unlock()
}

// canView allows the report's inspector, reviewers and system callers.
func canView(ctx context.Context, report *railinspect.TripReport) error {
	profile := railinspect.ProfileFromContext(ctx)
	if profile == nil || profile.ID == report.InspectorID || profile.Role.CanReview() {
		return nil
	}
	return railinspect.Forbidden("You do not have access to this report")
}
