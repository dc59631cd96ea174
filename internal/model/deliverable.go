package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type DeliverableKind string

const (
	KindOutlineDocument  DeliverableKind = "outline_document"
	KindExtendedAbstract DeliverableKind = "extended_abstract"
	KindFinalReport      DeliverableKind = "final_report"
)

// 固定反馈维度，所有交付物类型共用
const (
	CategoryAnalysis           = "Analysis"
	CategoryDesign             = "Design"
	CategoryImplementation     = "Implementation"
	CategoryWriting            = "Writing"
	CategoryEvaluation         = "Evaluation"
	CategoryOverallAchievement = "Overall Achievement"
)

var FeedbackCategories = []string{
	CategoryAnalysis,
	CategoryDesign,
	CategoryImplementation,
	CategoryWriting,
	CategoryEvaluation,
	CategoryOverallAchievement,
}

// FeedbackSet 固定维度的评语集合，以 JSON 列存储。
// 不变量：六个维度的键永远齐全，未填写的维度为空字符串。
type FeedbackSet map[string]string

func NewFeedbackSet() FeedbackSet {
	f := make(FeedbackSet, len(FeedbackCategories))
	for _, c := range FeedbackCategories {
		f[c] = ""
	}
	return f
}

// Normalize 补齐缺失的维度键并丢弃未知键，保证不变量成立
func (f FeedbackSet) Normalize() FeedbackSet {
	out := NewFeedbackSet()
	for _, c := range FeedbackCategories {
		if v, ok := f[c]; ok {
			out[c] = v
		}
	}
	return out
}

// Complete 是否所有维度均已填写（发布简单交付物的前置条件）
func (f FeedbackSet) Complete() bool {
	for _, c := range FeedbackCategories {
		if f[c] == "" {
			return false
		}
	}
	return true
}

func (f FeedbackSet) Value() (driver.Value, error) {
	return json.Marshal(f.Normalize())
}

func (f *FeedbackSet) Scan(value interface{}) error {
	if value == nil {
		*f = NewFeedbackSet()
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("unsupported feedback column type")
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	*f = FeedbackSet(m).Normalize()
	return nil
}

// SimpleDeliverable 项目大纲 / 扩展摘要共用的子记录
// swagger:model
type SimpleDeliverable struct {
	FileURI            string      `gorm:"size:512" json:"fileUri"`
	UploadedAt         *time.Time  `json:"uploadedAt"`
	SupervisorGrade    *int        `json:"supervisorGrade"`
	SupervisorFeedback FeedbackSet `gorm:"type:json" json:"supervisorFeedback"`
	IsPublished        bool        `gorm:"default:false" json:"isPublished"`
}

// FinalReportDeliverable 最终报告：在简单交付物之上增加双轨初评与双方签署
// swagger:model
type FinalReportDeliverable struct {
	FileURI    string     `gorm:"size:512" json:"fileUri"`
	UploadedAt *time.Time `json:"uploadedAt"`

	// 导师初评轨
	SupervisorInitialGrade     *int        `json:"supervisorInitialGrade"`
	SupervisorInitialFeedback  FeedbackSet `gorm:"type:json" json:"supervisorInitialFeedback"`
	SupervisorInitialSubmitted bool        `gorm:"default:false" json:"supervisorInitialSubmitted"`

	// 第二评阅人初评轨
	SecondReaderInitialGrade     *int        `json:"secondReaderInitialGrade"`
	SecondReaderInitialFeedback  FeedbackSet `gorm:"type:json" json:"secondReaderInitialFeedback"`
	SecondReaderInitialSubmitted bool        `gorm:"default:false" json:"secondReaderInitialSubmitted"`

	SupervisorSigned   bool `gorm:"default:false" json:"supervisorSigned"`
	SecondReaderSigned bool `gorm:"default:false" json:"secondReaderSigned"`

	// 协商后的正式成绩，区别于初评轨
	SupervisorGrade    *int        `json:"supervisorGrade"`
	SupervisorFeedback FeedbackSet `gorm:"type:json" json:"supervisorFeedback"`
	IsPublished        bool        `gorm:"default:false" json:"isPublished"`
}

// DeliverableRecord 每个项目一条，三类交付物子记录内嵌
// swagger:model
type DeliverableRecord struct {
	BaseModel
	ProjectID  uint  `gorm:"uniqueIndex;not null" json:"projectId"`
	DeadlineID *uint `gorm:"index" json:"deadlineId"`

	OutlineDocument  SimpleDeliverable      `gorm:"embedded;embeddedPrefix:outline_" json:"outlineDocument"`
	ExtendedAbstract SimpleDeliverable      `gorm:"embedded;embeddedPrefix:abstract_" json:"extendedAbstract"`
	FinalReport      FinalReportDeliverable `gorm:"embedded;embeddedPrefix:report_" json:"finalReport"`
}

func (DeliverableRecord) TableName() string {
	return "deliverable_records"
}

// NormalizeFeedback 保证所有评语集合的维度键齐全
func (d *DeliverableRecord) NormalizeFeedback() {
	d.OutlineDocument.SupervisorFeedback = d.OutlineDocument.SupervisorFeedback.Normalize()
	d.ExtendedAbstract.SupervisorFeedback = d.ExtendedAbstract.SupervisorFeedback.Normalize()
	d.FinalReport.SupervisorInitialFeedback = d.FinalReport.SupervisorInitialFeedback.Normalize()
	d.FinalReport.SecondReaderInitialFeedback = d.FinalReport.SecondReaderInitialFeedback.Normalize()
	d.FinalReport.SupervisorFeedback = d.FinalReport.SupervisorFeedback.Normalize()
}

func (d *DeliverableRecord) AfterFind(tx *gorm.DB) error {
	d.NormalizeFeedback()
	return nil
}

func (d *DeliverableRecord) BeforeSave(tx *gorm.DB) error {
	d.NormalizeFeedback()
	return nil
}

// Simple 按类型取简单交付物子记录；最终报告不在此列
func (d *DeliverableRecord) Simple(kind DeliverableKind) *SimpleDeliverable {
	switch kind {
	case KindOutlineDocument:
		return &d.OutlineDocument
	case KindExtendedAbstract:
		return &d.ExtendedAbstract
	}
	return nil
}

// ReviewState 交付物评审状态，由子记录字段显式推导
type ReviewState string

const (
	StateEmpty                 ReviewState = "EMPTY"
	StateUploaded              ReviewState = "UPLOADED"
	StateGraded                ReviewState = "GRADED"
	StateAwaitingProvisional   ReviewState = "AWAITING_PROVISIONAL"
	StateBothProvisionalSubmit ReviewState = "BOTH_PROVISIONAL_SUBMITTED"
	StatePartiallySigned       ReviewState = "PARTIALLY_SIGNED"
	StateSigned                ReviewState = "SIGNED"
	StatePublished             ReviewState = "PUBLISHED"
)

// State 简单交付物的状态推导：Empty → Uploaded → Graded → Published
func (s *SimpleDeliverable) State() ReviewState {
	switch {
	case s.IsPublished:
		return StatePublished
	case s.SupervisorGrade != nil || !s.SupervisorFeedback.Normalize().isEmpty():
		return StateGraded
	case s.FileURI != "":
		return StateUploaded
	default:
		return StateEmpty
	}
}

// State 最终报告的状态推导，双轨初评与签署阶段插在上传与发布之间
func (r *FinalReportDeliverable) State() ReviewState {
	switch {
	case r.IsPublished:
		return StatePublished
	case r.SupervisorSigned && r.SecondReaderSigned:
		return StateSigned
	case r.SupervisorSigned || r.SecondReaderSigned:
		return StatePartiallySigned
	case r.SupervisorInitialSubmitted && r.SecondReaderInitialSubmitted:
		return StateBothProvisionalSubmit
	case r.FileURI != "":
		return StateAwaitingProvisional
	default:
		return StateEmpty
	}
}

func (f FeedbackSet) isEmpty() bool {
	for _, c := range FeedbackCategories {
		if f[c] != "" {
			return false
		}
	}
	return true
}
