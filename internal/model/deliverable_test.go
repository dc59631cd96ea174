package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestFeedbackSetNormalize(t *testing.T) {
	f := FeedbackSet{
		CategoryAnalysis: "solid problem analysis",
		"Bogus":          "should be dropped",
	}

	out := f.Normalize()

	assert.Len(t, out, len(FeedbackCategories))
	assert.Equal(t, "solid problem analysis", out[CategoryAnalysis])
	assert.Equal(t, "", out[CategoryDesign])
	_, ok := out["Bogus"]
	assert.False(t, ok)
}

func TestFeedbackSetComplete(t *testing.T) {
	f := NewFeedbackSet()
	assert.False(t, f.Complete())

	for _, c := range FeedbackCategories {
		f[c] = "ok"
	}
	assert.True(t, f.Complete())

	f[CategoryWriting] = ""
	assert.False(t, f.Complete())
}

func TestFeedbackSetScan(t *testing.T) {
	var f FeedbackSet
	err := f.Scan([]byte(`{"Analysis":"good","Unknown":"x"}`))
	require.NoError(t, err)

	assert.Equal(t, "good", f[CategoryAnalysis])
	assert.Len(t, f, len(FeedbackCategories))

	var empty FeedbackSet
	require.NoError(t, empty.Scan(nil))
	assert.Len(t, empty, len(FeedbackCategories))

	var bad FeedbackSet
	assert.Error(t, bad.Scan(42))
}

func TestSimpleDeliverableState(t *testing.T) {
	var s SimpleDeliverable
	assert.Equal(t, StateEmpty, s.State())

	s.FileURI = "uploads/outline.pdf"
	assert.Equal(t, StateUploaded, s.State())

	s.SupervisorGrade = intPtr(70)
	assert.Equal(t, StateGraded, s.State())

	s.IsPublished = true
	assert.Equal(t, StatePublished, s.State())
}

func TestSimpleDeliverableStateFeedbackOnly(t *testing.T) {
	s := SimpleDeliverable{
		FileURI:            "uploads/outline.pdf",
		SupervisorFeedback: FeedbackSet{CategoryDesign: "clean architecture"},
	}
	assert.Equal(t, StateGraded, s.State())
}

func TestFinalReportState(t *testing.T) {
	var r FinalReportDeliverable
	assert.Equal(t, StateEmpty, r.State())

	now := time.Now()
	r.FileURI = "uploads/report.pdf"
	r.UploadedAt = &now
	assert.Equal(t, StateAwaitingProvisional, r.State())

	r.SupervisorInitialSubmitted = true
	assert.Equal(t, StateAwaitingProvisional, r.State())

	r.SecondReaderInitialSubmitted = true
	assert.Equal(t, StateBothProvisionalSubmit, r.State())

	r.SupervisorSigned = true
	assert.Equal(t, StatePartiallySigned, r.State())

	r.SecondReaderSigned = true
	assert.Equal(t, StateSigned, r.State())

	r.IsPublished = true
	assert.Equal(t, StatePublished, r.State())
}

func TestNormalizeFeedbackFillsAllSets(t *testing.T) {
	rec := DeliverableRecord{ProjectID: 1}
	rec.NormalizeFeedback()

	assert.Len(t, rec.OutlineDocument.SupervisorFeedback, len(FeedbackCategories))
	assert.Len(t, rec.ExtendedAbstract.SupervisorFeedback, len(FeedbackCategories))
	assert.Len(t, rec.FinalReport.SupervisorInitialFeedback, len(FeedbackCategories))
	assert.Len(t, rec.FinalReport.SecondReaderInitialFeedback, len(FeedbackCategories))
	assert.Len(t, rec.FinalReport.SupervisorFeedback, len(FeedbackCategories))
}
