package export

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ErrPrinterUnavailable is returned when no PDF printer is configured or
// its browser is not installed.
var ErrPrinterUnavailable = errors.New("pdf printer unavailable")

// Printer turns a rendered HTML document into a PDF.
type Printer interface {
	PrintPDF(ctx context.Context, html string) ([]byte, error)
}

// NewPrinter returns the printer for a provider name: "chrome" or "none".
func NewPrinter(provider string, timeout time.Duration) Printer {
	switch provider {
	case "none":
		return NopPrinter{}
	default:
		return &ChromePrinter{Timeout: timeout}
	}
}

// NopPrinter never prints. Documents are published as HTML instead.
type NopPrinter struct{}

func (NopPrinter) PrintPDF(context.Context, string) ([]byte, error) {
	return nil, ErrPrinterUnavailable
}

// ChromePrinter prints through a headless Chromium.
type ChromePrinter struct {
	// ExecPath overrides browser discovery.
	ExecPath string

	// Timeout bounds one print. Defaults to 30 seconds.
	Timeout time.Duration
}

func (p *ChromePrinter) browser() (string, error) {
	if p.ExecPath != "" {
		return p.ExecPath, nil
	}
	for _, name := range []string{"chromium-browser", "chromium", "google-chrome", "headless-shell"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: chromium not installed", ErrPrinterUnavailable)
}

// PrintPDF renders html on A4 paper with backgrounds.
func (p *ChromePrinter) PrintPDF(ctx context.Context, html string) ([]byte, error) {
	execPath, err := p.browser()
	if err != nil {
		return nil, err
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(execPath),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	dataURL := "data:text/html;charset=utf-8," + percentEncodeForDataURL(html)

	var pdf []byte
	err = chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27). // A4
				WithPaperHeight(11.69).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome pdf generation failed: %w", err)
	}
	return pdf, nil
}

// percentEncodeForDataURL encodes s for a data URL. Spaces become %20,
// not +.
func percentEncodeForDataURL(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
