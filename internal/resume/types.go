package resume

import "time"

// InitialVersion 是新建简历的起始版本号。
const InitialVersion int64 = 1

// Document 表示一份简历的完整持久化记录（元数据 + 结构化内容 + 版本号）。
type Document struct {
	ID         string    `json:"id"`
	OwnerID    uint      `json:"-"`
	Title      string    `json:"title"`
	TemplateID string    `json:"template_id"`
	Content    Content   `json:"content"`
	Version    int64     `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Clone 返回与原文档不共享切片的副本。
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Content = d.Content.Clone()
	return &out
}

// Content 表示简历编辑器中的全部分区。
type Content struct {
	PersonalInfo PersonalInfo     `json:"personal_info" bson:"personal_info"`
	Summary      Summary          `json:"summary" bson:"summary"`
	Experience   []ExperienceItem `json:"experience" bson:"experience"`
	Education    []EducationItem  `json:"education" bson:"education"`
	Skills       Skills           `json:"skills" bson:"skills"`
	Projects     []ProjectItem    `json:"projects" bson:"projects"`
}

// PersonalInfo 描述简历抬头的联系信息。
type PersonalInfo struct {
	FullName string `json:"full_name" bson:"full_name"`
	Email    string `json:"email" bson:"email"`
	Phone    string `json:"phone" bson:"phone"`
	Location string `json:"location,omitempty" bson:"location,omitempty"`
}

// Summary 是个人简介段落。
type Summary struct {
	Text string `json:"text" bson:"text"`
}

// ExperienceItem 是一段工作经历。
type ExperienceItem struct {
	ID          string `json:"id" bson:"id"`
	Company     string `json:"company" bson:"company"`
	Title       string `json:"title" bson:"title"`
	StartDate   string `json:"start_date" bson:"start_date"`
	EndDate     string `json:"end_date,omitempty" bson:"end_date,omitempty"`
	Description string `json:"description" bson:"description"`
}

// EducationItem 是一段教育经历。
type EducationItem struct {
	ID          string `json:"id" bson:"id"`
	Institution string `json:"institution" bson:"institution"`
	Degree      string `json:"degree" bson:"degree"`
	StartDate   string `json:"start_date" bson:"start_date"`
	EndDate     string `json:"end_date,omitempty" bson:"end_date,omitempty"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
}

// Skills 是技能名称集合。
type Skills struct {
	Items []string `json:"items" bson:"items"`
}

// ProjectItem 是一个项目经历。
type ProjectItem struct {
	ID          string `json:"id" bson:"id"`
	Name        string `json:"name" bson:"name"`
	Description string `json:"description" bson:"description"`
	Link        string `json:"link,omitempty" bson:"link,omitempty"`
}
