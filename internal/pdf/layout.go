package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"cvbuilder/internal/resume"
)

// Mode 是导出版式。
type Mode string

const (
	ModeATS    Mode = "ats"
	ModeVisual Mode = "visual"
	// ModeBoth 先输出 ATS 页，再输出 visual 页。
	ModeBoth Mode = "both"
)

// ParseMode 校验并规范化导出版式。
func ParseMode(raw string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(raw))); m {
	case ModeATS, ModeVisual, ModeBoth:
		return m, nil
	default:
		return "", fmt.Errorf("unknown export mode %q", raw)
	}
}

// RequiresPro 表示该版式是否需要付费计划。
func (m Mode) RequiresPro() bool {
	return m != ModeATS
}

func (m Mode) pages() []string {
	switch m {
	case ModeVisual:
		return []string{string(ModeVisual)}
	case ModeBoth:
		return []string{string(ModeATS), string(ModeVisual)}
	default:
		return []string{string(ModeATS)}
	}
}

var pageTmpl = template.Must(template.New("resume").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(pageTemplate))

type pageData struct {
	Title   string
	Content resume.Content
	Pages   []string
}

// RenderHTML 将简历渲染为可打印的 HTML 文档。
func RenderHTML(doc *resume.Document, mode Mode) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("render html: nil document")
	}
	var buf bytes.Buffer
	data := pageData{
		Title:   doc.Title,
		Content: resume.Normalize(doc.Content),
		Pages:   mode.pages(),
	}
	if err := pageTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute resume template: %w", err)
	}
	return buf.String(), nil
}
