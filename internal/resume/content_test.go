package resume

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeFillsMissingSections(t *testing.T) {
	got := Normalize(Content{})

	require.NotNil(t, got.Experience)
	require.NotNil(t, got.Education)
	require.NotNil(t, got.Projects)
	require.NotNil(t, got.Skills.Items)
	require.Empty(t, got.Experience)
	require.Empty(t, got.Skills.Items)
}

func TestNormalizeAssignsMissingEntryIDsOnly(t *testing.T) {
	in := Content{
		Experience: []ExperienceItem{{ID: "exp-1", Company: "Acme"}, {Company: "Initech"}},
		Education:  []EducationItem{{Institution: "MIT"}},
		Projects:   []ProjectItem{{ID: " ", Name: "cli"}},
	}

	got := Normalize(in)

	require.Equal(t, "exp-1", got.Experience[0].ID)
	require.NotEmpty(t, got.Experience[1].ID)
	require.NotEmpty(t, got.Education[0].ID)
	require.NotEqual(t, " ", got.Projects[0].ID)
	require.Empty(t, in.Experience[1].ID, "input must not be mutated")

	again := Normalize(got)
	require.Equal(t, got.Experience[1].ID, again.Experience[1].ID)
}

func TestNormalizeDedupesSkills(t *testing.T) {
	got := Normalize(Content{Skills: Skills{Items: []string{"Go", " go ", "", "SQL", "Kubernetes", "sql"}}})
	require.Equal(t, []string{"Go", "SQL", "Kubernetes"}, got.Skills.Items)
}

func TestCloneDoesNotShareSlices(t *testing.T) {
	doc := &Document{Content: Content{Skills: Skills{Items: []string{"Go"}}}}
	cp := doc.Clone()
	cp.Content.Skills.Items[0] = "Rust"
	require.Equal(t, "Go", doc.Content.Skills.Items[0])
}

func TestCloneKeepsEmptyListsNonNil(t *testing.T) {
	cp := Empty().Clone()
	require.NotNil(t, cp.Experience)
	require.NotNil(t, cp.Education)
	require.NotNil(t, cp.Projects)
	require.NotNil(t, cp.Skills.Items)

	require.Nil(t, Content{}.Clone().Experience)
}

func TestLookupTemplate(t *testing.T) {
	_, ok := LookupTemplate(DefaultTemplateID)
	require.True(t, ok)
	_, ok = LookupTemplate("nope")
	require.False(t, ok)
	require.Len(t, Templates(), 11)
}
