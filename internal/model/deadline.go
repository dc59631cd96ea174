package model

import "time"

// Deadline 一届学生三类交付物的截止时间表
// swagger:model
type Deadline struct {
	BaseModel
	Name             string    `gorm:"size:100;not null" json:"name"`
	OutlineDocument  time.Time `gorm:"comment:项目大纲截止时间" json:"outlineDocument"`
	ExtendedAbstract time.Time `gorm:"comment:扩展摘要截止时间" json:"extendedAbstract"`
	FinalReport      time.Time `gorm:"comment:最终报告截止时间" json:"finalReport"`
}

func (Deadline) TableName() string {
	return "deadlines"
}

// For 返回指定交付物类型的截止时间
func (d *Deadline) For(kind DeliverableKind) (time.Time, bool) {
	switch kind {
	case KindOutlineDocument:
		return d.OutlineDocument, true
	case KindExtendedAbstract:
		return d.ExtendedAbstract, true
	case KindFinalReport:
		return d.FinalReport, true
	}
	return time.Time{}, false
}
