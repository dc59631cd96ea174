package service

import (
	"fyp_backend/internal/model"
	"fyp_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	supervisorID   uint = 10
	secondReaderID uint = 11
	studentAID     uint = 20
	studentBID     uint = 21
	outsiderID     uint = 99
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

// fakeDeliverableStore 内存实现，UpdateLocked 失败时整体回滚
type fakeDeliverableStore struct {
	rec *model.DeliverableRecord
}

func (f *fakeDeliverableStore) GetByProjectID(projectID uint) (*model.DeliverableRecord, error) {
	if f.rec == nil {
		f.rec = &model.DeliverableRecord{ProjectID: projectID}
		f.rec.NormalizeFeedback()
	}
	return f.rec, nil
}

func (f *fakeDeliverableStore) UpdateLocked(projectID uint, fn func(rec *model.DeliverableRecord) error) (*model.DeliverableRecord, error) {
	if _, err := f.GetByProjectID(projectID); err != nil {
		return nil, err
	}
	snapshot := *f.rec
	if err := fn(f.rec); err != nil {
		*f.rec = snapshot
		return nil, err
	}
	return f.rec, nil
}

func (f *fakeDeliverableStore) DeleteByProjectID(projectID uint) error {
	f.rec = nil
	return nil
}

type fakeProjectResolver struct {
	project *model.Project
}

func (f *fakeProjectResolver) FindByID(id uint) (*model.Project, error) {
	if f.project == nil || f.project.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return f.project, nil
}

type fakeRelay struct {
	events []RelayEvent
}

func (f *fakeRelay) Send(event RelayEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeRelay) byType(t model.NotificationType) []RelayEvent {
	var out []RelayEvent
	for _, ev := range f.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func testProject() *model.Project {
	sup := supervisorID
	sr := secondReaderID
	return &model.Project{
		BaseModel:      model.BaseModel{ID: 1},
		Title:          "分布式缓存一致性研究",
		SupervisorID:   &sup,
		SecondReaderID: &sr,
		Students: []model.User{
			{BaseModel: model.BaseModel{ID: studentAID}},
			{BaseModel: model.BaseModel{ID: studentBID}},
		},
		Deadline: &model.Deadline{
			Name:             "2026-2027",
			OutlineDocument:  time.Date(2026, 12, 1, 23, 59, 0, 0, time.UTC),
			ExtendedAbstract: time.Date(2027, 3, 1, 23, 59, 0, 0, time.UTC),
			FinalReport:      time.Date(2027, 6, 1, 23, 59, 0, 0, time.UTC),
		},
	}
}

func newWorkflowFixture() (*DeliverableService, *fakeDeliverableStore, *fakeRelay) {
	store := &fakeDeliverableStore{}
	relay := &fakeRelay{}
	svc := NewDeliverableService(store, &fakeProjectResolver{project: testProject()}, relay)
	svc.now = func() time.Time {
		return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	}
	return svc, store, relay
}

func completeFeedback(text string) map[string]string {
	fb := make(map[string]string, len(model.FeedbackCategories))
	for _, c := range model.FeedbackCategories {
		fb[c] = text
	}
	return fb
}

func TestUpdateEmptyPatchReturnsRecord(t *testing.T) {
	svc, _, relay := newWorkflowFixture()

	rec, err := svc.Update(1, supervisorID, DeliverablePatch{})
	require.NoError(t, err)
	assert.Equal(t, model.StateEmpty, rec.OutlineDocument.State())
	assert.Empty(t, relay.events)
}

func TestUpdateUnknownProject(t *testing.T) {
	svc, _, _ := newWorkflowFixture()

	_, err := svc.Update(42, supervisorID, DeliverablePatch{
		OutlineDocument: &SimpleDeliverablePatch{SupervisorGrade: intPtr(60)},
	})
	assert.ErrorIs(t, err, util.ErrProjectNotFound)
}

func TestUpdateByOutsiderDenied(t *testing.T) {
	svc, _, _ := newWorkflowFixture()

	_, err := svc.Update(1, outsiderID, DeliverablePatch{
		OutlineDocument: &SimpleDeliverablePatch{SupervisorGrade: intPtr(60)},
	})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestGradeOutOfRangeLeavesRecordUntouched(t *testing.T) {
	svc, store, _ := newWorkflowFixture()

	_, err := svc.Update(1, supervisorID, DeliverablePatch{
		OutlineDocument: &SimpleDeliverablePatch{SupervisorGrade: intPtr(101)},
	})
	assert.ErrorIs(t, err, util.ErrGradeOutOfRange)
	assert.Nil(t, store.rec.OutlineDocument.SupervisorGrade)

	_, err = svc.Update(1, supervisorID, DeliverablePatch{
		OutlineDocument: &SimpleDeliverablePatch{SupervisorGrade: intPtr(-1)},
	})
	assert.ErrorIs(t, err, util.ErrGradeOutOfRange)
}

func TestPartialUpdatePreservesSiblings(t *testing.T) {
	svc, store, _ := newWorkflowFixture()

	_, err := svc.Update(1, supervisorID, DeliverablePatch{
		OutlineDocument: &SimpleDeliverablePatch{
			SupervisorGrade:    intPtr(65),
			SupervisorFeedback: map[string]string{model.CategoryAnalysis: "well scoped"},
		},
	})
	require.NoError(t, err)

	// 只动扩展摘要，大纲的成绩与评语原样保留
	_, err = svc.Update(1, supervisorID, DeliverablePatch{
		ExtendedAbstract: &SimpleDeliverablePatch{SupervisorGrade: intPtr(70)},
	})
	require.NoError(t, err)

	require.NotNil(t, store.rec.OutlineDocument.SupervisorGrade)
	assert.Equal(t, 65, *store.rec.OutlineDocument.SupervisorGrade)
	assert.Equal(t, "well scoped", store.rec.OutlineDocument.SupervisorFeedback[model.CategoryAnalysis])
	require.NotNil(t, store.rec.ExtendedAbstract.SupervisorGrade)
	assert.Equal(t, 70, *store.rec.ExtendedAbstract.SupervisorGrade)
}

func TestFeedbackMergeKeepsOtherCategories(t *testing.T) {
	svc, store, _ := newWorkflowFixture()

	_, err := svc.Update(1, supervisorID, DeliverablePatch{
		OutlineDocument: &SimpleDeliverablePatch{
			SupervisorFeedback: map[string]string{model.CategoryAnalysis: "good"},
		},
	})
	require.NoError(t, err)

	_, err = svc.Update(1, supervisorID, DeliverablePatch{
		OutlineDocument: &SimpleDeliverablePatch{
			SupervisorFeedback: map[string]string{model.CategoryDesign: "clean"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "good", store.rec.OutlineDocument.SupervisorFeedback[model.CategoryAnalysis])
	assert.Equal(t, "clean", store.rec.OutlineDocument.SupervisorFeedback[model.CategoryDesign])
}

func TestUnknownFeedbackCategoryRejected(t *testing.T) {
	svc, _, _ := newWorkflowFixture()

	_, err := svc.Update(1, supervisorID, DeliverablePatch{
		OutlineDocument: &SimpleDeliverablePatch{
			SupervisorFeedback: map[string]string{"Creativity": "nope"},
		},
	})
	assert.ErrorIs(t, err, util.ErrUnknownCategory)
}

func TestSecondReaderCannotTouchSimpleDeliverables(t *testing.T) {
	svc, _, _ := newWorkflowFixture()

	_, err := svc.Update(1, secondReaderID, DeliverablePatch{
		OutlineDocument: &SimpleDeliverablePatch{SupervisorGrade: intPtr(60)},
	})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestSecondReaderCannotTouchConvergedGrade(t *testing.T) {
	svc, _, _ := newWorkflowFixture()

	_, err := svc.Update(1, secondReaderID, DeliverablePatch{
		FinalReport: &FinalReportPatch{SupervisorGrade: intPtr(70)},
	})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestReviewerCannotTouchCounterpartTrack(t *testing.T) {
	svc, _, _ := newWorkflowFixture()

	_, err := svc.Update(1, supervisorID, DeliverablePatch{
		FinalReport: &FinalReportPatch{SecondReaderInitialGrade: intPtr(70)},
	})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = svc.Update(1, secondReaderID, DeliverablePatch{
		FinalReport: &FinalReportPatch{SupervisorInitialSubmitted: boolPtr(true)},
	})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestPublishRequiresGradeAndCompleteFeedback(t *testing.T) {
	svc, _, _ := newWorkflowFixture()

	_, err := svc.Update(1, supervisorID, DeliverablePatch{
		OutlineDocument: &SimpleDeliverablePatch{IsPublished: boolPtr(true)},
	})
	assert.ErrorIs(t, err, util.ErrGradeMissing)

	_, err = svc.Update(1, supervisorID, DeliverablePatch{
		OutlineDocument: &SimpleDeliverablePatch{
			SupervisorGrade:    intPtr(65),
			SupervisorFeedback: map[string]string{model.CategoryAnalysis: "only one filled"},
			IsPublished:        boolPtr(true),
		},
	})
	assert.ErrorIs(t, err, util.ErrFeedbackIncomplete)
}

func TestOutlineUploadGradePublishFlow(t *testing.T) {
	svc, store, relay := newWorkflowFixture()

	_, err := svc.Upload(1, studentAID, model.KindOutlineDocument, "uploads/deliverables/1/outline.pdf")
	require.NoError(t, err)
	assert.Equal(t, model.StateUploaded, store.rec.OutlineDocument.State())

	_, err = svc.Update(1, supervisorID, DeliverablePatch{
		OutlineDocument: &SimpleDeliverablePatch{
			SupervisorGrade:    intPtr(65),
			SupervisorFeedback: completeFeedback("solid"),
			IsPublished:        boolPtr(true),
		},
	})
	require.NoError(t, err)

	assert.True(t, store.rec.OutlineDocument.IsPublished)
	assert.Equal(t, model.StatePublished, store.rec.OutlineDocument.State())

	events := relay.byType(model.NotifOutlinePublished)
	require.Len(t, events, 1)
	assert.ElementsMatch(t, []uint{studentAID, studentBID}, events[0].ReceiverIDs)
	assert.Equal(t, supervisorID, events[0].ActorID)
	assert.Equal(t, uint(1), events[0].ProjectID)
}

func TestRepublishIsIdempotentNoop(t *testing.T) {
	svc, _, relay := newWorkflowFixture()

	_, err := svc.Update(1, supervisorID, DeliverablePatch{
		OutlineDocument: &SimpleDeliverablePatch{
			SupervisorGrade:    intPtr(65),
			SupervisorFeedback: completeFeedback("solid"),
			IsPublished:        boolPtr(true),
		},
	})
	require.NoError(t, err)
	require.Len(t, relay.byType(model.NotifOutlinePublished), 1)

	// 重复发布：无副作用，不重复通知
	_, err = svc.Update(1, supervisorID, DeliverablePatch{
		OutlineDocument: &SimpleDeliverablePatch{IsPublished: boolPtr(true)},
	})
	require.NoError(t, err)
	assert.Len(t, relay.byType(model.NotifOutlinePublished), 1)

	// 发布之后的成绩改动一律拒绝
	_, err = svc.Update(1, supervisorID, DeliverablePatch{
		OutlineDocument: &SimpleDeliverablePatch{SupervisorGrade: intPtr(80)},
	})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestSignBeforeSubmitRejected(t *testing.T) {
	svc, store, _ := newWorkflowFixture()

	_, err := svc.Update(1, supervisorID, DeliverablePatch{
		FinalReport: &FinalReportPatch{SupervisorSigned: boolPtr(true)},
	})
	assert.ErrorIs(t, err, util.ErrNotSubmitted)
	assert.False(t, store.rec.FinalReport.SupervisorSigned)
}

func TestProvisionalSubmitNotifiesCounterpart(t *testing.T) {
	svc, store, relay := newWorkflowFixture()

	_, err := svc.Update(1, supervisorID, DeliverablePatch{
		FinalReport: &FinalReportPatch{
			SupervisorInitialGrade:     intPtr(80),
			SupervisorInitialFeedback:  map[string]string{model.CategoryImplementation: "robust"},
			SupervisorInitialSubmitted: boolPtr(true),
		},
	})
	require.NoError(t, err)

	assert.True(t, store.rec.FinalReport.SupervisorInitialSubmitted)
	events := relay.byType(model.NotifSupervisorProvisionalSubmitted)
	require.Len(t, events, 1)
	assert.Equal(t, []uint{secondReaderID}, events[0].ReceiverIDs)

	// 重复提交不再通知
	_, err = svc.Update(1, supervisorID, DeliverablePatch{
		FinalReport: &FinalReportPatch{SupervisorInitialSubmitted: boolPtr(true)},
	})
	require.NoError(t, err)
	assert.Len(t, relay.byType(model.NotifSupervisorProvisionalSubmitted), 1)
}

func submitBothProvisionals(t *testing.T, svc *DeliverableService) {
	t.Helper()
	_, err := svc.Update(1, supervisorID, DeliverablePatch{
		FinalReport: &FinalReportPatch{
			SupervisorInitialGrade:     intPtr(80),
			SupervisorInitialSubmitted: boolPtr(true),
		},
	})
	require.NoError(t, err)
	_, err = svc.Update(1, secondReaderID, DeliverablePatch{
		FinalReport: &FinalReportPatch{
			SecondReaderInitialGrade:     intPtr(75),
			SecondReaderInitialSubmitted: boolPtr(true),
		},
	})
	require.NoError(t, err)
}

func TestExplicitPublishBeforeBothSignedRejected(t *testing.T) {
	svc, _, _ := newWorkflowFixture()
	submitBothProvisionals(t, svc)

	_, err := svc.Update(1, supervisorID, DeliverablePatch{
		FinalReport: &FinalReportPatch{IsPublished: boolPtr(true)},
	})
	assert.ErrorIs(t, err, util.ErrNotSigned)
}

func TestBothSignaturesAutoPublish(t *testing.T) {
	svc, store, relay := newWorkflowFixture()
	submitBothProvisionals(t, svc)

	// 协商后的正式成绩
	_, err := svc.Update(1, supervisorID, DeliverablePatch{
		FinalReport: &FinalReportPatch{
			SupervisorGrade:    intPtr(78),
			SupervisorFeedback: completeFeedback("agreed"),
		},
	})
	require.NoError(t, err)

	_, err = svc.Update(1, supervisorID, DeliverablePatch{
		FinalReport: &FinalReportPatch{SupervisorSigned: boolPtr(true)},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatePartiallySigned, store.rec.FinalReport.State())
	assert.False(t, store.rec.FinalReport.IsPublished)
	assert.Empty(t, relay.byType(model.NotifFinalReportPublished))

	_, err = svc.Update(1, secondReaderID, DeliverablePatch{
		FinalReport: &FinalReportPatch{SecondReaderSigned: boolPtr(true)},
	})
	require.NoError(t, err)

	// 第二个签名落地即自动发布
	assert.True(t, store.rec.FinalReport.IsPublished)
	assert.Equal(t, model.StatePublished, store.rec.FinalReport.State())

	published := relay.byType(model.NotifFinalReportPublished)
	require.Len(t, published, 1)
	assert.ElementsMatch(t, []uint{studentAID, studentBID}, published[0].ReceiverIDs)
}

func TestRevealFlowThroughService(t *testing.T) {
	svc, _, _ := newWorkflowFixture()

	_, err := svc.Update(1, supervisorID, DeliverablePatch{
		FinalReport: &FinalReportPatch{
			SupervisorInitialGrade:     intPtr(80),
			SupervisorInitialSubmitted: boolPtr(true),
		},
	})
	require.NoError(t, err)

	// 对方尚未提交，揭示被拒
	_, err = svc.Reveal(1, supervisorID)
	assert.ErrorIs(t, err, util.ErrNotRevealed)

	_, err = svc.Update(1, secondReaderID, DeliverablePatch{
		FinalReport: &FinalReportPatch{
			SecondReaderInitialGrade:     intPtr(75),
			SecondReaderInitialSubmitted: boolPtr(true),
		},
	})
	require.NoError(t, err)

	view, err := svc.Reveal(1, supervisorID)
	require.NoError(t, err)
	assert.Equal(t, RoleSecondReader, view.Role)
	require.NotNil(t, view.Grade)
	assert.Equal(t, 75, *view.Grade)

	view, err = svc.Reveal(1, secondReaderID)
	require.NoError(t, err)
	require.NotNil(t, view.Grade)
	assert.Equal(t, 80, *view.Grade)
}

func TestUploadByNonStudentDenied(t *testing.T) {
	svc, _, _ := newWorkflowFixture()

	_, err := svc.Upload(1, supervisorID, model.KindOutlineDocument, "uploads/x.pdf")
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestUploadAfterDeadlineRejected(t *testing.T) {
	svc, store, _ := newWorkflowFixture()
	svc.now = func() time.Time {
		return time.Date(2026, 12, 2, 0, 0, 0, 0, time.UTC)
	}

	_, err := svc.Upload(1, studentAID, model.KindOutlineDocument, "uploads/late.pdf")
	assert.ErrorIs(t, err, util.ErrDeadlinePassed)
	assert.Nil(t, store.rec)

	// 最终报告的截止时间尚未到，仍可上传
	_, err = svc.Upload(1, studentAID, model.KindFinalReport, "uploads/report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "uploads/report.pdf", store.rec.FinalReport.FileURI)
}

func TestUploadToPublishedDeliverableRejected(t *testing.T) {
	svc, _, _ := newWorkflowFixture()

	_, err := svc.Update(1, supervisorID, DeliverablePatch{
		OutlineDocument: &SimpleDeliverablePatch{
			SupervisorGrade:    intPtr(65),
			SupervisorFeedback: completeFeedback("done"),
			IsPublished:        boolPtr(true),
		},
	})
	require.NoError(t, err)

	_, err = svc.Upload(1, studentAID, model.KindOutlineDocument, "uploads/rework.pdf")
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}
