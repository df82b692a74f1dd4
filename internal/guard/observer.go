package guard

import (
	"context"

	"cvbuilder/internal/resume"
)

// Observer 在守卫作出判定后收到通知。调用发生在文档锁之外、请求 goroutine 上，实现应尽快返回。
type Observer interface {
	Applied(ctx context.Context, doc *resume.Document, conditional bool)
	Conflicted(ctx context.Context, ownerID uint, id string, expected, current int64)
}

type NopObserver struct{}

func (NopObserver) Applied(context.Context, *resume.Document, bool)        {}
func (NopObserver) Conflicted(context.Context, uint, string, int64, int64) {}

// Observers 按顺序把事件分发给多个观察者。
type Observers []Observer

func (o Observers) Applied(ctx context.Context, doc *resume.Document, conditional bool) {
	for _, obs := range o {
		obs.Applied(ctx, doc, conditional)
	}
}

func (o Observers) Conflicted(ctx context.Context, ownerID uint, id string, expected, current int64) {
	for _, obs := range o {
		obs.Conflicted(ctx, ownerID, id, expected, current)
	}
}
