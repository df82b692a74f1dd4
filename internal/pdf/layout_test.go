package pdf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"cvbuilder/internal/resume"
)

func sampleDoc() *resume.Document {
	c := resume.Empty()
	c.PersonalInfo = resume.PersonalInfo{FullName: "Ada Lovelace", Email: "ada@example.com", Phone: "555-0100"}
	c.Summary.Text = "Analyst <of engines>"
	c.Experience = []resume.ExperienceItem{{Company: "Babbage & Co", Title: "Programmer", StartDate: "1842"}}
	c.Skills.Items = []string{"Maths", "Poetry"}
	return &resume.Document{ID: "cv", Title: "Ada", Content: c, Version: 3}
}

func TestParseMode(t *testing.T) {
	for raw, want := range map[string]Mode{"ats": ModeATS, " Visual ": ModeVisual, "BOTH": ModeBoth} {
		got, err := ParseMode(raw)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseMode("docx")
	require.Error(t, err)

	require.False(t, ModeATS.RequiresPro())
	require.True(t, ModeVisual.RequiresPro())
	require.True(t, ModeBoth.RequiresPro())
}

func TestRenderATS(t *testing.T) {
	html, err := RenderHTML(sampleDoc(), ModeATS)
	require.NoError(t, err)

	require.Equal(t, 1, strings.Count(html, `class="a4-page ats"`))
	require.NotContains(t, html, `class="a4-page visual"`)
	require.Contains(t, html, "Programmer at Babbage &amp; Co")
	require.Contains(t, html, "1842 - Present")
	require.Contains(t, html, "Maths, Poetry")
	require.Contains(t, html, "Analyst &lt;of engines&gt;")
	require.NotContains(t, html, "<h2>Projects</h2>")
}

func TestRenderBothPutsATSFirst(t *testing.T) {
	html, err := RenderHTML(sampleDoc(), ModeBoth)
	require.NoError(t, err)

	ats := strings.Index(html, `class="a4-page ats"`)
	visual := strings.Index(html, `class="a4-page visual"`)
	require.GreaterOrEqual(t, ats, 0)
	require.Greater(t, visual, ats)
}

func TestRenderEmptyContentUsesPlaceholderName(t *testing.T) {
	html, err := RenderHTML(&resume.Document{}, ModeVisual)
	require.NoError(t, err)
	require.Contains(t, html, "<h1>Name</h1>")
}
