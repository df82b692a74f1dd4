package suggest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSuggestMergesAndCaps(t *testing.T) {
	svc := NewService(NewCache(8, time.Minute))

	got, err := svc.Suggest("tech", "Experience", "")
	require.NoError(t, err)
	require.Len(t, got, MaxResults)
	require.Equal(t, "Spearheaded", got[0])
}

func TestSuggestByCategory(t *testing.T) {
	svc := NewService(NewCache(8, time.Minute))

	got, err := svc.Suggest("finance", "projects", CategoryMetrics)
	require.NoError(t, err)
	require.Contains(t, got, "Achieved 99.9% uptime")

	got, err = svc.Suggest("finance", "summary", CategoryMetrics)
	require.NoError(t, err)
	require.Empty(t, got)

	_, err = svc.Suggest("finance", "summary", "buzzwords")
	require.ErrorIs(t, err, ErrUnknownCategory)
}

func TestSuggestBlankInputs(t *testing.T) {
	svc := NewService(nil)
	for _, tc := range [][2]string{{"", "experience"}, {"tech", ""}, {"  ", "  "}} {
		got, err := svc.Suggest(tc[0], tc[1], "")
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Empty(t, got)
	}
}

func TestLookupDeduplicates(t *testing.T) {
	const section = "volunteering"
	catalog[CategoryActionVerbs][section] = []string{"Led", "Organized"}
	catalog[CategoryKeywords][section] = []string{"Led", "Mentoring"}
	catalog[CategoryMetrics][section] = []string{"Organized", "Raised $5K"}
	t.Cleanup(func() {
		for _, cat := range categoryOrder {
			delete(catalog[cat], section)
		}
	})

	require.Equal(t, []string{"Led", "Organized", "Mentoring", "Raised $5K"}, lookup(section, ""))
	require.Equal(t, []string{"Led", "Mentoring"}, lookup(section, CategoryKeywords))
}

func TestCacheServesRepeatLookups(t *testing.T) {
	cache := NewCache(2, time.Minute)
	svc := NewService(cache)

	first, err := svc.Suggest("tech", "skills", "")
	require.NoError(t, err)
	first[0] = "mutated"

	second, err := svc.Suggest("TECH", " skills ", "")
	require.NoError(t, err)
	require.Equal(t, "Mastered", second[0])

	hits, misses := svc.Stats()
	require.Equal(t, uint64(1), hits)
	require.Equal(t, uint64(1), misses)
	require.Equal(t, 1, cache.Len())
}

func TestCacheIsBounded(t *testing.T) {
	cache := NewCache(2, time.Minute)
	svc := NewService(cache)
	for _, section := range []string{"experience", "summary", "skills", "projects"} {
		_, err := svc.Suggest("tech", section, "")
		require.NoError(t, err)
	}
	require.Equal(t, 2, cache.Len())
}

func TestUnknownSectionIsEmptyListNotNil(t *testing.T) {
	svc := NewService(NewCache(8, time.Minute))
	for i := 0; i < 2; i++ {
		got, err := svc.Suggest("tech", "hobbies", "")
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Empty(t, got)
	}
}
