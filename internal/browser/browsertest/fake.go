// Package browsertest provides an in-memory browser.Driver for tests.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/genascope/accountcheck/internal/browser"
)

// Page is what the fake serves for one URL.
type Page struct {
	HTML string
	// Elements maps selectors to their text; a present key means the
	// selector matches.
	Elements map[string]string
	// Links lists anchor texts with the URL each one leads to.
	Links []Link
	// OnClick maps a selector to the URL the browser lands on after it is
	// clicked. Unlisted selectors leave the page unchanged.
	OnClick map[string]string
}

type Link struct {
	Text string
	Href string
}

// Driver is a scripted browser. Navigating to an unknown URL yields an
// empty page.
type Driver struct {
	mu      sync.Mutex
	Pages   map[string]*Page
	Storage map[string]string
	// Errors forces a method ("Goto", "Content", ...) to fail.
	Errors map[string]error

	current string
	Filled  map[string]string
	Clicked []string
	Visited []string
	Closed  bool
}

var _ browser.Driver = (*Driver)(nil)

func New() *Driver {
	return &Driver{
		Pages:   make(map[string]*Page),
		Storage: make(map[string]string),
		Errors:  make(map[string]error),
		Filled:  make(map[string]string),
	}
}

func (d *Driver) page() *Page {
	if p, ok := d.Pages[d.current]; ok {
		return p
	}
	return &Page{}
}

func (d *Driver) fail(method string) error {
	return d.Errors[method]
}

func (d *Driver) Goto(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("Goto"); err != nil {
		return err
	}
	d.current = url
	d.Visited = append(d.Visited, url)
	return ctx.Err()
}

func (d *Driver) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

func (d *Driver) Content() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("Content"); err != nil {
		return "", err
	}
	return d.page().HTML, nil
}

func (d *Driver) WaitFor(selector string, timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.page().Elements[selector]; !ok {
		return fmt.Errorf("%w: %s after %s", browser.ErrNotFound, selector, timeout)
	}
	return nil
}

func (d *Driver) Fill(selector, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.page().Elements[selector]; !ok {
		return fmt.Errorf("%w: %s", browser.ErrNotFound, selector)
	}
	d.Filled[selector] = value
	return nil
}

func (d *Driver) Click(selector string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := d.page()
	if _, ok := p.Elements[selector]; !ok {
		return fmt.Errorf("%w: %s", browser.ErrNotFound, selector)
	}
	d.Clicked = append(d.Clicked, selector)
	if next, ok := p.OnClick[selector]; ok {
		d.current = next
	}
	return nil
}

func (d *Driver) Text(selector string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	text, ok := d.page().Elements[selector]
	if !ok {
		return "", fmt.Errorf("%w: %s", browser.ErrNotFound, selector)
	}
	return text, nil
}

// Evaluate understands localStorage.getItem('key') and nothing else.
func (d *Driver) Evaluate(expression string) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("Evaluate"); err != nil {
		return nil, err
	}
	const prefix, suffix = "localStorage.getItem('", "')"
	if !strings.HasPrefix(expression, prefix) || !strings.HasSuffix(expression, suffix) {
		return nil, fmt.Errorf("fake cannot evaluate %q", expression)
	}
	key := strings.TrimSuffix(strings.TrimPrefix(expression, prefix), suffix)
	if v, ok := d.Storage[key]; ok {
		return v, nil
	}
	return nil, nil
}

func (d *Driver) matching(partial string) []Link {
	var out []Link
	for _, l := range d.page().Links {
		if strings.Contains(l.Text, partial) {
			out = append(out, l)
		}
	}
	return out
}

func (d *Driver) CountLinks(partial string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("CountLinks"); err != nil {
		return 0, err
	}
	return len(d.matching(partial)), nil
}

func (d *Driver) ClickLink(partial string, index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	links := d.matching(partial)
	if index >= len(links) {
		return fmt.Errorf("%w: link %d containing %q", browser.ErrNotFound, index, partial)
	}
	d.Clicked = append(d.Clicked, "link:"+links[index].Text)
	d.current = links[index].Href
	d.Visited = append(d.Visited, d.current)
	return nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Closed = true
	return nil
}
