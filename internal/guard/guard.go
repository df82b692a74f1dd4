// Package guard 根据写入方认为的当前版本号，决定一次简历写入能否生效并执行它。
//
// 同一文档的“检查再写入”是原子的：进程内按文档 ID 加锁串行化，
// 存储层的 Swap 只在版本号仍等于检查时的值才成功，因此多副本部署下也不会有两个写入基于同一版本生效。
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cvbuilder/internal/resume"
	"cvbuilder/internal/store"
)

// Outcome 是一次写入的判定结果。
type Outcome int

const (
	Applied Outcome = iota + 1
	Conflict
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Conflict:
		return "conflict"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// ErrContention 表示无条件写入多次输给其他进程的 Swap，放弃重试。
var ErrContention = errors.New("guard: too many concurrent writers")

const defaultMaxAttempts = 5

// Patch 列出本次写入要替换的字段，nil 字段保持不变；Content 整体替换全部分区。
type Patch struct {
	Title      *string
	TemplateID *string
	Content    *resume.Content
}

// Result 携带判定结果，以及新文档或服务端当前版本号。
type Result struct {
	Outcome        Outcome
	Document       *resume.Document
	CurrentVersion int64
}

// Guard 在乐观版本校验下把写入应用到存储。
type Guard struct {
	store       store.Store
	locks       *keyedMutex
	observer    Observer
	now         func() time.Time
	maxAttempts int
}

type Option func(*Guard)

// WithObserver 设置接收判定结果的观察者。
func WithObserver(o Observer) Option {
	return func(g *Guard) {
		if o != nil {
			g.observer = o
		}
	}
}

// WithClock 替换 UpdatedAt 使用的时间源。
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
	}
}

func New(s store.Store, opts ...Option) *Guard {
	g := &Guard{
		store:       s,
		locks:       newKeyedMutex(),
		observer:    NopObserver{},
		now:         time.Now,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// TryApply 把 patch 合并进 ownerID 名下的文档。
//
// expected 为 nil 时无条件写入；否则仅当 expected 等于存储中的版本号才写入，
// 不相等返回 Conflict 与当前版本号且不做任何修改。文档不存在或属于他人返回 NotFound。
// error 只用于存储故障，此时不会留下部分写入。
// 观察者在释放文档锁之后才收到通知，慢的观察者不会阻塞同一文档的后续写入。
func (g *Guard) TryApply(ctx context.Context, ownerID uint, id string, expected *int64, patch Patch) (Result, error) {
	res, err := g.decide(ctx, ownerID, id, expected, patch)
	if err != nil {
		return res, err
	}

	switch res.Outcome {
	case Applied:
		g.observer.Applied(ctx, res.Document, expected != nil)
	case Conflict:
		g.observer.Conflicted(ctx, ownerID, id, *expected, res.CurrentVersion)
	}
	return res, nil
}

func (g *Guard) decide(ctx context.Context, ownerID uint, id string, expected *int64, patch Patch) (Result, error) {
	unlock := g.locks.Lock(id)
	defer unlock()

	for attempt := 1; ; attempt++ {
		cur, err := g.store.Get(ctx, ownerID, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return Result{Outcome: NotFound}, nil
			}
			return Result{}, fmt.Errorf("load document %s: %w", id, err)
		}

		if expected != nil && *expected != cur.Version {
			return Result{Outcome: Conflict, CurrentVersion: cur.Version}, nil
		}

		next := apply(cur, patch, g.now())
		err = g.store.Swap(ctx, next, cur.Version)
		switch {
		case err == nil:
			return Result{Outcome: Applied, Document: next, CurrentVersion: next.Version}, nil
		case errors.Is(err, store.ErrNotFound):
			return Result{Outcome: NotFound}, nil
		case errors.Is(err, store.ErrVersionMismatch):
			// 其他进程抢先写入：重新读取后，条件写入会得到 Conflict，无条件写入则重试。
			if attempt >= g.maxAttempts {
				return Result{}, fmt.Errorf("apply document %s: %w", id, ErrContention)
			}
		default:
			return Result{}, fmt.Errorf("store document %s: %w", id, err)
		}
	}
}

// apply 生成下一版本；内容无论是否被替换都重新规范化，保证写回存储的列表不为 null。
func apply(cur *resume.Document, patch Patch, now time.Time) *resume.Document {
	next := cur.Clone()
	if patch.Title != nil {
		next.Title = *patch.Title
	}
	if patch.TemplateID != nil {
		next.TemplateID = *patch.TemplateID
	}
	if patch.Content != nil {
		next.Content = *patch.Content
	}
	next.Content = resume.Normalize(next.Content)
	next.Version = cur.Version + 1
	next.UpdatedAt = now.UTC().Truncate(time.Microsecond)
	return next
}
