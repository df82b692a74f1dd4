package resume

import (
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Normalize 把可能缺失分区的内容补齐为完整结构：
// 列表分区不为 nil，缺少 ID 的条目分配新的 UUID，技能去重（忽略大小写，保留首次出现顺序）。
func Normalize(c Content) Content {
	out := c.Clone()

	if out.Experience == nil {
		out.Experience = []ExperienceItem{}
	}
	for i := range out.Experience {
		if strings.TrimSpace(out.Experience[i].ID) == "" {
			out.Experience[i].ID = uuid.NewString()
		}
	}

	if out.Education == nil {
		out.Education = []EducationItem{}
	}
	for i := range out.Education {
		if strings.TrimSpace(out.Education[i].ID) == "" {
			out.Education[i].ID = uuid.NewString()
		}
	}

	if out.Projects == nil {
		out.Projects = []ProjectItem{}
	}
	for i := range out.Projects {
		if strings.TrimSpace(out.Projects[i].ID) == "" {
			out.Projects[i].ID = uuid.NewString()
		}
	}

	out.Skills.Items = dedupeSkills(out.Skills.Items)
	return out
}

// Empty 返回一份所有分区均为空值的内容。
func Empty() Content {
	return Normalize(Content{})
}

// Clone 深拷贝内容，避免调用方与存储共享底层数组；空列表保持为空列表而不是 nil。
func (c Content) Clone() Content {
	out := c
	out.Experience = slices.Clone(c.Experience)
	out.Education = slices.Clone(c.Education)
	out.Projects = slices.Clone(c.Projects)
	out.Skills.Items = slices.Clone(c.Skills.Items)
	return out
}

func dedupeSkills(items []string) []string {
	result := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		name := strings.TrimSpace(item)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, name)
	}
	return result
}
