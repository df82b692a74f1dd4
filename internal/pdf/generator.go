package pdf

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const defaultRenderTimeout = 30 * time.Second

// Renderer 把 HTML 打印为 PDF。
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// RodRenderer 使用 go-rod 在无头浏览器中渲染 HTML；每次调用启动独立的浏览器进程。
type RodRenderer struct {
	Timeout time.Duration
	// BrowserBin 为空时自动查找本机 Chromium。
	BrowserBin string
}

// Render 实现 Renderer。
func (r RodRenderer) Render(ctx context.Context, htmlContent string) ([]byte, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}

	launch := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true)

	if r.BrowserBin != "" {
		launch = launch.Bin(r.BrowserBin)
	} else if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	defer launch.Cleanup()

	browser := rod.New().Context(ctx).ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer func() {
		_ = browser.Close()
	}()

	page, err := browser.Timeout(timeout).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer func() {
		_ = page.Close()
	}()

	page = page.Timeout(timeout)
	if err := page.SetDocumentContent(htmlContent); err != nil {
		return nil, fmt.Errorf("set document content: %w", err)
	}

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	reader, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
		PaperWidth:        float64Ptr(8.27),
		PaperHeight:       float64Ptr(11.69),
		MarginTop:         float64Ptr(0),
		MarginBottom:      float64Ptr(0),
		MarginLeft:        float64Ptr(0),
		MarginRight:       float64Ptr(0),
	})
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf bytes: %w", err)
	}

	return data, nil
}

func float64Ptr(value float64) *float64 {
	return &value
}
