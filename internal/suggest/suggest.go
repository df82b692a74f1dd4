// Package suggest 根据静态词库为简历分区提供写作建议，结果缓存在服务自有的有界缓存中。
package suggest

import (
	"errors"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MaxResults 是单次返回的上限。
const MaxResults = 10

var ErrUnknownCategory = errors.New("suggest: unknown category")

// Cache 是查询结果缓存。
type Cache = expirable.LRU[string, []string]

// NewCache 构造最多 size 条、每条存活 ttl 的缓存。
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = 256
	}
	return expirable.NewLRU[string, []string](size, nil, ttl)
}

type Service struct {
	cache  *Cache
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewService 使用注入的缓存构造建议服务。
func NewService(cache *Cache) *Service {
	return &Service{cache: cache}
}

// Suggest 返回某分区最多 MaxResults 条建议。未指定 category 时按动词、关键词、量化指标的顺序合并去重；
// industry 或 section 为空时返回空列表。
func (s *Service) Suggest(industry, section, category string) ([]string, error) {
	industry = strings.ToLower(strings.TrimSpace(industry))
	section = strings.ToLower(strings.TrimSpace(section))
	category = strings.ToLower(strings.TrimSpace(category))

	if category != "" {
		if _, ok := catalog[category]; !ok {
			return nil, ErrUnknownCategory
		}
	}
	if industry == "" || section == "" {
		return []string{}, nil
	}

	key := industry + "|" + section + "|" + category
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			s.hits.Add(1)
			return slices.Clone(cached), nil
		}
	}
	s.misses.Add(1)

	out := lookup(section, category)
	if s.cache != nil {
		s.cache.Add(key, out)
	}
	return slices.Clone(out), nil
}

// Stats 返回启动以来的缓存命中与未命中次数，由 metrics 包导出。
func (s *Service) Stats() (hits, misses uint64) {
	return s.hits.Load(), s.misses.Load()
}

func lookup(section, category string) []string {
	categories := categoryOrder
	if category != "" {
		categories = []string{category}
	}

	seen := make(map[string]struct{})
	out := make([]string, 0, MaxResults)
	for _, cat := range categories {
		for _, phrase := range catalog[cat][section] {
			if _, dup := seen[phrase]; dup {
				continue
			}
			seen[phrase] = struct{}{}
			out = append(out, phrase)
			if len(out) == MaxResults {
				return out
			}
		}
	}
	return out
}
