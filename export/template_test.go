package export

import (
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReport() *railinspect.TripReport {
	return &railinspect.TripReport{
		ID:          uuid.New(),
		TrainNumber: "12951",
		Location:    "Mumbai Central",
		CoachType:   "AC",
		Status:      railinspect.ReportStatusSubmitted,
	}
}

func result(status railinspect.CheckStatus, remarks string) *railinspect.ActivityResult {
	return &railinspect.ActivityResult{CheckStatus: status, Remarks: remarks}
}

// testSections is deliberately out of number order.
func testSections() []*railinspect.Section {
	return []*railinspect.Section{
		{ID: "s10", SectionNumber: "10", Name: "Roof", Categories: []*railinspect.Category{
			{ID: "c10", CategoryNumber: "10.1", Name: "Ventilators", Activities: []*railinspect.Activity{
				{ID: "a10", ActivityNumber: "10.1.1", Text: "Ventilator covers secure"},
			}},
		}},
		{ID: "s2", SectionNumber: "2", Name: "Undergear", Categories: []*railinspect.Category{
			{ID: "c2b", CategoryNumber: "2.10", Name: "Couplers", ApplicableCoachTypes: []string{"EMU"}, Activities: []*railinspect.Activity{
				{ID: "a2b", ActivityNumber: "2.10.1", Text: "Coupler knuckle", Result: result(railinspect.CheckStatusNotOK, "worn")},
			}},
			{ID: "c2a", CategoryNumber: "2.9", Name: "Brakes", Activities: []*railinspect.Activity{
				{ID: "a2a2", ActivityNumber: "2.9.2", Text: "Brake cylinder", Result: result(railinspect.CheckStatusOK, "")},
				{ID: "a2a1", ActivityNumber: "2.9.1", Text: "Brake blocks", IsCompulsory: true, Result: result(railinspect.CheckStatusOK, "")},
			}},
		}},
	}
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(testReport(), testSections(), RenderOptions{InspectorName: "A. Kumar"})
	require.NoError(t, err)

	assert.Contains(t, html, "12951")
	assert.Contains(t, html, "Mumbai Central")
	assert.Contains(t, html, "A. Kumar")
	assert.Contains(t, html, "75%")
	assert.Contains(t, html, "Not OK")
	assert.Contains(t, html, "worn")
	assert.Contains(t, html, "not applicable to AC")

	// Missing optional fields.
	assert.Contains(t, html, "<td>Train Name</td><td>N/A</td>")
	assert.Contains(t, html, "<td>Red On Time</td><td>N/A</td>")

	// Natural number order: 2 before 10, 2.9 before 2.10, 2.9.1 before 2.9.2.
	order := []string{"Brake blocks", "Brake cylinder", "Coupler knuckle", "Ventilator covers secure"}
	last := -1
	for _, text := range order {
		i := strings.Index(html, text)
		require.NotEqual(t, -1, i, text)
		assert.Greater(t, i, last, text)
		last = i
	}
}

func TestRenderHTMLDeterministic(t *testing.T) {
	report := testReport()
	sections := testSections()
	first, err := RenderHTML(report, sections, RenderOptions{})
	require.NoError(t, err)

	reversed := testSections()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	second, err := RenderHTML(report, reversed, RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Input is not reordered.
	assert.Equal(t, "s10", sections[0].ID)
}

func TestRenderHTMLEmpty(t *testing.T) {
	html, err := RenderHTML(&railinspect.TripReport{}, nil, RenderOptions{})
	require.NoError(t, err)
	assert.Contains(t, html, "<td>0%</td>")
	assert.NotContains(t, html, "NaN")
}

func TestRenderHTMLPendingWithoutResult(t *testing.T) {
	sections := []*railinspect.Section{{ID: "s", SectionNumber: "1", Categories: []*railinspect.Category{
		{ID: "c", CategoryNumber: "1.1", Activities: []*railinspect.Activity{{ID: "a", ActivityNumber: "1.1.1", Text: "Check"}}},
	}}}
	html, err := RenderHTML(testReport(), sections, RenderOptions{})
	require.NoError(t, err)
	assert.Contains(t, html, `class="pending">Pending`)
}

func TestRenderHTMLEscapes(t *testing.T) {
	report := testReport()
	report.TrainName = "<script>alert(1)</script>"
	html, err := RenderHTML(report, nil, RenderOptions{})
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>alert(1)</script>")
}

func TestRenderHTMLTimes(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	on := time.Date(2026, 3, 1, 4, 30, 0, 0, time.UTC)
	report := testReport()
	report.RedOnTime = &on

	html, err := RenderHTML(report, nil, RenderOptions{Location: loc})
	require.NoError(t, err)
	assert.Contains(t, html, "01 Mar 2026 10:00")
}

func TestRenderHTMLRequiresReport(t *testing.T) {
	_, err := RenderHTML(nil, nil, RenderOptions{})
	assert.Equal(t, railinspect.EINVALID, railinspect.ErrorCode(err))
}

func TestPercentEncodeForDataURL(t *testing.T) {
	assert.Equal(t, "a%20b%3Cp%3E", percentEncodeForDataURL("a b<p>"))
	assert.Equal(t, "%C3%A9", percentEncodeForDataURL("é"))
}
