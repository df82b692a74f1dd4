package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"cvbuilder/internal/autosave"
	"cvbuilder/internal/client"
	"cvbuilder/internal/resume"
)

// 冲突处理策略。
const (
	conflictStop      = "stop"
	conflictOverwrite = "overwrite"
	conflictDiscard   = "discard"
)

func newEditCmd() *cobra.Command {
	var (
		onConflict string
		debounce   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "edit <id> <file>",
		Short: "Write a resume's content to a JSON file and autosave every change to it",
		Long: `edit writes the resume content to <file> and watches it. Each time the
file is saved the new content is handed to the autosave coordinator, which
sends one version-checked write after the file has been quiet for the
debounce interval. Press Ctrl-C to flush pending changes and exit.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch onConflict {
			case conflictStop, conflictOverwrite, conflictDiscard:
			default:
				return fmt.Errorf("--on-conflict must be stop, overwrite or discard")
			}
			c, err := apiClient()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s := &editSession{
				api:        c,
				id:         args[0],
				path:       args[1],
				onConflict: onConflict,
				debounce:   debounce,
				out:        cmd.OutOrStdout(),
			}
			return s.run(ctx)
		},
	}
	cmd.Flags().StringVar(&onConflict, "on-conflict", conflictStop, "what to do when the server copy changed: stop, overwrite or discard")
	cmd.Flags().DurationVar(&debounce, "debounce", autosave.DefaultDebounce, "quiet period before a save")
	return cmd
}

// editSession 连接文件监听与自动保存协调器。
type editSession struct {
	api        *client.Client
	id         string
	path       string
	onConflict string
	debounce   time.Duration
	out        io.Writer

	lastWritten []byte
}

func (s *editSession) run(ctx context.Context) error {
	path, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", s.path, err)
	}
	s.path = path

	doc, err := s.api.Get(ctx, s.id)
	if err != nil {
		return err
	}
	if err := s.writeContent(doc.Content); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "editing %q (version %d) in %s\n", doc.Title, doc.Version, s.path)

	events := make(chan autosave.Event, 8)
	coord := autosave.New(s.api, doc, autosave.Options{
		Debounce: s.debounce,
		OnEvent:  func(ev autosave.Event) { events <- ev },
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	coord.Start(ctx)
	defer coord.Close()

	changes := make(chan []byte, 1)
	watchErr := make(chan error, 1)
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go func() {
		watchErr <- watchFile(watchCtx, s.path, func(data []byte) {
			select {
			case changes <- data:
			case <-watchCtx.Done():
			}
		})
	}()

	for {
		select {
		case <-ctx.Done():
			return s.finish(coord, events)
		case err := <-watchErr:
			if err != nil {
				return err
			}
			return s.finish(coord, events)
		case data := <-changes:
			if bytes.Equal(data, s.lastWritten) {
				continue
			}
			content, err := decodeContent(data)
			if err != nil {
				fmt.Fprintf(s.out, "ignoring change: %v\n", err)
				continue
			}
			s.lastWritten = data
			coord.EditContent(content)
		case ev := <-events:
			if err := s.handle(ctx, coord, ev); err != nil {
				return err
			}
		}
	}
}

func (s *editSession) handle(ctx context.Context, coord *autosave.Coordinator, ev autosave.Event) error {
	switch ev.Kind {
	case autosave.Saved:
		fmt.Fprintf(s.out, "saved version %d at %s\n", ev.Version, ev.UpdatedAt.Local().Format(time.TimeOnly))
	case autosave.Failed:
		fmt.Fprintf(s.out, "save failed, will retry: %v\n", ev.Err)
	case autosave.NotFound:
		fmt.Fprintln(s.out, "resume no longer exists; autosave stopped")
		return autosave.ErrNotFound
	case autosave.Conflict:
		fmt.Fprintf(s.out, "conflict: server is at version %d\n", ev.Version)
		switch s.onConflict {
		case conflictOverwrite:
			fmt.Fprintln(s.out, "overwriting server copy with local changes")
			return coord.Overwrite(ev.Version)
		case conflictDiscard:
			doc, err := s.api.Get(ctx, s.id)
			if err != nil {
				return err
			}
			if err := coord.Discard(doc); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "discarded local changes, reloaded version %d\n", doc.Version)
			return s.writeContent(doc.Content)
		default:
			return fmt.Errorf("%w: rerun with --on-conflict overwrite or discard", autosave.ErrConflicted)
		}
	}
	return nil
}

// finish 在退出前写入尚未保存的修改。
func (s *editSession) finish(coord *autosave.Coordinator, events <-chan autosave.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	err := coord.Flush(ctx)
	for {
		select {
		case ev := <-events:
			if ev.Kind == autosave.Saved {
				fmt.Fprintf(s.out, "saved version %d\n", ev.Version)
			}
		default:
			if errors.Is(err, autosave.ErrConflicted) {
				fmt.Fprintln(s.out, "unsaved local changes remain in", s.path)
			}
			return err
		}
	}
}

func (s *editSession) writeContent(content resume.Content) error {
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	s.lastWritten = data
	return nil
}

func decodeContent(data []byte) (resume.Content, error) {
	var content resume.Content
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&content); err != nil {
		return resume.Content{}, fmt.Errorf("invalid resume json: %w", err)
	}
	return content, nil
}

// watchFile 监听 path 所在目录，文件被写入或替换时把新内容交给 onChange。
// 监听目录而不是文件本身，是因为很多编辑器用改名的方式保存。
func watchFile(ctx context.Context, path string, onChange func([]byte)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			onChange(data)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}
}
