package resume

// DefaultTemplateID 是创建时未指定模板所使用的模板。
const DefaultTemplateID = "default"

// Template 描述一个可选的展示模板。
type Template struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Industry string `json:"industry"`
}

var templates = []Template{
	{ID: DefaultTemplateID, Name: "Default", Industry: ""},
	{ID: "tech", Name: "Technology", Industry: "Tech"},
	{ID: "finance", Name: "Finance", Industry: "Finance"},
	{ID: "creative", Name: "Creative", Industry: "Creative"},
	{ID: "healthcare", Name: "Healthcare", Industry: "Healthcare"},
	{ID: "education", Name: "Education", Industry: "Education"},
	{ID: "engineering", Name: "Engineering", Industry: "Engineering"},
	{ID: "sales", Name: "Sales", Industry: "Sales"},
	{ID: "customer-service", Name: "Customer Service", Industry: "Customer Service"},
	{ID: "retail", Name: "Retail", Industry: "Retail"},
	{ID: "government", Name: "Government", Industry: "Government"},
}

// Templates 返回模板目录的副本。
func Templates() []Template {
	return append([]Template(nil), templates...)
}

// LookupTemplate 按 ID 查找模板。
func LookupTemplate(id string) (Template, bool) {
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}
