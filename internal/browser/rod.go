package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

type rodDriver struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	timeout  time.Duration
	log      *zap.Logger
}

// openRod attaches to opts.ControlURL when set and otherwise launches a
// local Chromium.
func openRod(ctx context.Context, opts Options, log *zap.Logger) (Driver, error) {
	d := &rodDriver{timeout: opts.DefaultTimeout, log: log}
	if d.timeout <= 0 {
		d.timeout = 30 * time.Second
	}

	controlURL := opts.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(opts.Headless).NoSandbox(opts.NoSandbox)
		if opts.DisableDevShm {
			l = l.Set(flags.Flag("disable-dev-shm-usage"))
		}
		if opts.Bin != "" {
			l = l.Bin(opts.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		d.launcher = l
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if opts.SlowMo > 0 {
		b = b.SlowMotion(time.Duration(opts.SlowMo) * time.Millisecond)
	}
	if err := b.Connect(); err != nil {
		d.Close()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	d.browser = b

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             1280,
		Height:            720,
		DeviceScaleFactor: 1.0,
	}).Call(page); err != nil {
		log.Debug("viewport override failed", zap.Error(err))
	}
	d.page = page
	return d, nil
}

func (d *rodDriver) Goto(ctx context.Context, url string) error {
	p := d.page.Context(ctx).Timeout(d.timeout)
	if err := p.Navigate(url); err != nil {
		return err
	}
	return p.WaitLoad()
}

func (d *rodDriver) URL() string {
	info, err := d.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (d *rodDriver) Content() (string, error) { return d.page.HTML() }

func (d *rodDriver) WaitFor(selector string, timeout time.Duration) error {
	if _, err := d.page.Timeout(timeout).Element(selector); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotFound, selector, err)
	}
	return nil
}

func (d *rodDriver) element(selector string) (*rod.Element, error) {
	has, el, err := d.page.Has(selector)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return el.Timeout(d.timeout), nil
}

func (d *rodDriver) Fill(selector, value string) error {
	el, err := d.element(selector)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(value)
}

func (d *rodDriver) Click(selector string) error {
	el, err := d.element(selector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (d *rodDriver) Text(selector string) (string, error) {
	el, err := d.element(selector)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (d *rodDriver) Evaluate(expression string) (any, error) {
	res, err := d.page.Eval(expression)
	if err != nil {
		return nil, err
	}
	if res.Value.Nil() {
		return nil, nil
	}
	return res.Value.Val(), nil
}

func (d *rodDriver) links(partial string) (rod.Elements, error) {
	anchors, err := d.page.Elements("a")
	if err != nil {
		return nil, err
	}
	var matched rod.Elements
	for _, a := range anchors {
		text, err := a.Text()
		if err != nil {
			continue
		}
		if strings.Contains(text, partial) {
			matched = append(matched, a)
		}
	}
	return matched, nil
}

func (d *rodDriver) CountLinks(partial string) (int, error) {
	matched, err := d.links(partial)
	return len(matched), err
}

func (d *rodDriver) ClickLink(partial string, index int) error {
	matched, err := d.links(partial)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(matched) {
		return fmt.Errorf("%w: link %d containing %q", ErrNotFound, index, partial)
	}
	return matched[index].Timeout(d.timeout).Click(proto.InputMouseButtonLeft, 1)
}

func (d *rodDriver) Close() error {
	var err error
	if d.page != nil {
		_ = d.page.Close()
	}
	if d.browser != nil {
		err = d.browser.Close()
	}
	if d.launcher != nil {
		d.launcher.Kill()
		d.launcher.Cleanup()
	}
	if err != nil {
		d.log.Warn("browser cleanup incomplete", zap.Error(err))
	}
	return err
}
