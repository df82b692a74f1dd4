// Package autosave 把编辑器的连续改动合并成低频、带版本校验的简历写入。
//
// 改动立即记录，文档静默满一个防抖间隔后才发出一次写入。
// 版本冲突不会被自动解决：协调器停止自动保存，等待调用方选择 Overwrite 或 Discard。
package autosave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"cvbuilder/internal/resume"
)

// DefaultDebounce 是 Options.Debounce 为零时的静默间隔。
const DefaultDebounce = 2 * time.Second

// ErrNotFound 表示文档已删除或不再可访问。
var ErrNotFound = errors.New("autosave: document not found")

// 冲突尚未解决时 Flush 返回 ErrConflicted。
var ErrConflicted = errors.New("autosave: unresolved version conflict")

var ErrClosed = errors.New("autosave: coordinator closed")

// ConflictError 表示服务端版本比本次写入所基于的版本更新。
type ConflictError struct {
	CurrentVersion int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict: current version is %d", e.CurrentVersion)
}

// SaveRequest 是一次条件写入，nil 字段不发送。
type SaveRequest struct {
	Title   *string
	Content *resume.Content
	Version *int64
}

// Saver 执行自动保存调用：对应结果返回 ErrNotFound 或 *ConflictError，其余错误视为传输失败。
type Saver interface {
	Autosave(ctx context.Context, id string, req SaveRequest) (*resume.Document, error)
}

type Phase int

const (
	Active Phase = iota
	Conflicted
	Stopped
	Closed
)

func (p Phase) String() string {
	switch p {
	case Active:
		return "active"
	case Conflicted:
		return "conflicted"
	case Stopped:
		return "stopped"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// EventKind 标识一次写入的结果。
type EventKind int

const (
	Saved EventKind = iota + 1
	Conflict
	NotFound
	Failed
)

func (k EventKind) String() string {
	switch k {
	case Saved:
		return "saved"
	case Conflict:
		return "conflict"
	case NotFound:
		return "not_found"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event 在每次写入有结果后交给 Options.OnEvent。
type Event struct {
	Kind      EventKind
	Version   int64
	UpdatedAt time.Time
	Err       error
}

type Status struct {
	Phase        Phase
	Dirty        bool
	KnownVersion int64
	UpdatedAt    time.Time
	// 仅在 Conflicted 时有值。
	ServerVersion int64
}

type Options struct {
	Debounce time.Duration
	Clock    clockwork.Clock
	OnEvent  func(Event)
	Logger   *slog.Logger
}

// Coordinator 持有一份文档尚未保存的改动。
type Coordinator struct {
	saver    Saver
	id       string
	debounce time.Duration
	clock    clockwork.Clock
	onEvent  func(Event)
	logger   *slog.Logger

	// 同一时刻最多一个写入在途。
	writeMu sync.Mutex

	mu             sync.Mutex
	phase          Phase
	pendingTitle   *string
	pendingContent *resume.Content
	dirtySeq       uint64
	savedSeq       uint64
	knownVersion   int64
	serverVersion  int64
	updatedAt      time.Time
	timer          clockwork.Timer
	gen            uint64

	flushReq chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
}

// New 以最近一次从服务端加载的文档初始化协调器。
func New(saver Saver, doc *resume.Document, opts Options) *Coordinator {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Coordinator{
		saver:        saver,
		id:           doc.ID,
		debounce:     opts.Debounce,
		clock:        opts.Clock,
		onEvent:      opts.OnEvent,
		logger:       opts.Logger.With("resume_id", doc.ID),
		knownVersion: doc.Version,
		updatedAt:    doc.UpdatedAt,
		flushReq:     make(chan struct{}, 1),
	}
}

// Start 运行刷写循环，直到 ctx 取消或调用 Close。
func (c *Coordinator) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.loop(ctx)
}

func (c *Coordinator) loop(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.flushReq:
			// 在途写入不随 Close 取消，先等它有结果。
			if err := c.Flush(context.WithoutCancel(ctx)); err != nil {
				c.logger.Debug("autosave flush failed", "error", err)
			}
		}
	}
}

// EditContent 记录新内容并重新开始计时。
func (c *Coordinator) EditContent(content resume.Content) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := content.Clone()
	c.pendingContent = &cp
	c.markDirtyLocked()
}

func (c *Coordinator) EditTitle(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingTitle = &title
	c.markDirtyLocked()
}

func (c *Coordinator) markDirtyLocked() {
	if c.phase == Closed {
		return
	}
	c.dirtySeq++
	if c.phase == Active {
		c.scheduleLocked(c.debounce)
	}
}

// scheduleLocked 替换待触发的定时器；已触发但输给新调度的旧定时器看到过期的 gen，直接返回。
func (c *Coordinator) scheduleLocked(d time.Duration) {
	c.stopTimerLocked()
	c.gen++
	gen := c.gen
	c.timer = c.clock.AfterFunc(d, func() {
		c.mu.Lock()
		stale := gen != c.gen || c.phase != Active
		c.mu.Unlock()
		if !stale {
			c.requestFlush()
		}
	})
}

func (c *Coordinator) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
}

func (c *Coordinator) requestFlush() {
	select {
	case c.flushReq <- struct{}{}:
	default:
	}
}

// Flush 立即写入未保存的改动；没有改动时不做任何事，有在途写入时先等待。
func (c *Coordinator) Flush(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	switch c.phase {
	case Conflicted:
		c.mu.Unlock()
		return ErrConflicted
	case Stopped:
		c.mu.Unlock()
		return ErrNotFound
	case Closed:
		c.mu.Unlock()
		return ErrClosed
	}
	if c.dirtySeq == c.savedSeq {
		c.mu.Unlock()
		return nil
	}
	c.stopTimerLocked()
	seq := c.dirtySeq
	version := c.knownVersion
	req := SaveRequest{Title: c.pendingTitle, Version: &version}
	if c.pendingContent != nil {
		cp := c.pendingContent.Clone()
		req.Content = &cp
	}
	c.mu.Unlock()

	doc, err := c.saver.Autosave(ctx, c.id, req)

	var ev Event
	var conflict *ConflictError
	c.mu.Lock()
	switch {
	case err == nil:
		c.knownVersion = doc.Version
		c.updatedAt = doc.UpdatedAt
		c.savedSeq = seq
		if c.dirtySeq == seq {
			c.pendingTitle = nil
			c.pendingContent = nil
		}
		ev = Event{Kind: Saved, Version: doc.Version, UpdatedAt: doc.UpdatedAt}
	case errors.As(err, &conflict):
		// Close 期间解决的写入不能把已关闭的协调器重新带回可操作状态。
		if c.phase == Active {
			c.phase = Conflicted
			c.serverVersion = conflict.CurrentVersion
		}
		c.stopTimerLocked()
		ev = Event{Kind: Conflict, Version: conflict.CurrentVersion, Err: err}
	case errors.Is(err, ErrNotFound):
		if c.phase == Active {
			c.phase = Stopped
		}
		c.stopTimerLocked()
		ev = Event{Kind: NotFound, Err: err}
	default:
		if c.phase == Active {
			c.scheduleLocked(c.debounce)
		}
		ev = Event{Kind: Failed, Version: c.knownVersion, Err: err}
	}
	c.mu.Unlock()

	c.logger.Debug("autosave resolved", "event", ev.Kind.String(), "version", ev.Version)
	c.emit(ev)
	return err
}

// Overwrite 保留本地改动、以用户已看到的 currentVersion 为基准解决冲突，随后立即写入。
func (c *Coordinator) Overwrite(currentVersion int64) error {
	c.mu.Lock()
	if c.phase != Conflicted {
		c.mu.Unlock()
		return fmt.Errorf("overwrite in phase %s: no conflict to resolve", c.phase)
	}
	c.phase = Active
	c.knownVersion = currentVersion
	c.serverVersion = 0
	if c.dirtySeq == c.savedSeq {
		c.dirtySeq++
	}
	c.mu.Unlock()
	c.requestFlush()
	return nil
}

// Discard 丢弃本地改动，采用用户选择保留的服务端文档 doc。
func (c *Coordinator) Discard(doc *resume.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != Conflicted {
		return fmt.Errorf("discard in phase %s: no conflict to resolve", c.phase)
	}
	c.phase = Active
	c.knownVersion = doc.Version
	c.updatedAt = doc.UpdatedAt
	c.serverVersion = 0
	c.pendingTitle = nil
	c.pendingContent = nil
	c.savedSeq = c.dirtySeq
	return nil
}

func (c *Coordinator) State() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Phase:         c.phase,
		Dirty:         c.dirtySeq != c.savedSeq,
		KnownVersion:  c.knownVersion,
		UpdatedAt:     c.updatedAt,
		ServerVersion: c.serverVersion,
	}
}

// Close 停止定时器与循环，Closed 为终态。未保存的改动不会写出，需要保留时先调用 Flush。
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.stopTimerLocked()
	c.phase = Closed
	c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
}

func (c *Coordinator) emit(ev Event) {
	if c.onEvent != nil {
		c.onEvent(ev)
	}
}
