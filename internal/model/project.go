package model

// Project 毕业设计项目
// 导师与第二评阅人按项目指派，学生通过多对多关联到项目。
// swagger:model
type Project struct {
	BaseModel
	Title          string `gorm:"size:255;not null" json:"title"`
	Description    string `gorm:"type:text" json:"description"`
	SupervisorID   *uint  `gorm:"index;comment:导师ID" json:"supervisorId"`
	SecondReaderID *uint  `gorm:"index;comment:第二评阅人ID" json:"secondReaderId"`
	DeadlineID     *uint  `gorm:"index" json:"deadlineId"`

	Supervisor   *User    `gorm:"foreignKey:SupervisorID" json:"supervisor,omitempty"`
	SecondReader *User    `gorm:"foreignKey:SecondReaderID" json:"secondReader,omitempty"`
	Deadline     *Deadline `gorm:"foreignKey:DeadlineID" json:"deadline,omitempty"`
	Students     []User   `gorm:"many2many:project_students" json:"students,omitempty"`
}

func (Project) TableName() string {
	return "projects"
}

// StudentIDs 返回项目全部学生的用户ID（发布通知的接收方）
func (p *Project) StudentIDs() []uint {
	ids := make([]uint, 0, len(p.Students))
	for _, s := range p.Students {
		ids = append(ids, s.ID)
	}
	return ids
}
