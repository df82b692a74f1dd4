package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CacheStats 由写作建议服务实现。
type CacheStats interface {
	Stats() (hits, misses uint64)
}

// NewSuggestCacheCollectors 把建议缓存的命中与未命中次数暴露为计数器，按抓取时读取。
func NewSuggestCacheCollectors(stats CacheStats) []prometheus.Collector {
	hits := prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: "cvbuilder",
			Subsystem: "suggest",
			Name:      "cache_hits_total",
			Help:      "写作建议缓存命中次数。",
		},
		func() float64 {
			h, _ := stats.Stats()
			return float64(h)
		},
	)
	misses := prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: "cvbuilder",
			Subsystem: "suggest",
			Name:      "cache_misses_total",
			Help:      "写作建议缓存未命中次数。",
		},
		func() float64 {
			_, m := stats.Stats()
			return float64(m)
		},
	)
	return []prometheus.Collector{hits, misses}
}

// RegisterSuggestCache 在默认注册表上注册建议缓存指标。
func RegisterSuggestCache(stats CacheStats) error {
	for _, c := range NewSuggestCacheCollectors(stats) {
		if err := prometheus.Register(c); err != nil {
			return err
		}
	}
	return nil
}
