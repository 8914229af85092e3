package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jroimartin/gocui"

	"tryit/internal/httpclient"
	"tryit/internal/tryout"
)

func (a *App) layoutEndpoints(maxX, maxY int) error {
	a.clearMainViews([]string{"filter", "endpoints"})

	if v, err := a.g.SetView("filter", 0, 2, maxX-1, 4); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Filter"
		v.Editable = false
	}
	if v, err := a.g.SetView("endpoints", 0, 4, maxX-1, maxY-3); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Operations"
		v.Highlight = true
		v.SelFgColor = gocui.ColorBlack
		v.SelBgColor = gocui.ColorGreen
		v.Autoscroll = false
	}
	a.renderFilter()
	a.renderEndpoints()
	if _, err := a.g.SetCurrentView("endpoints"); err != nil {
		return err
	}
	return nil
}

func (a *App) appendFilterRune(r rune) func(*gocui.Gui, *gocui.View) error {
	return func(*gocui.Gui, *gocui.View) error {
		if a.scr != screenEndpoints || a.editing {
			return nil
		}
		a.filter += string(r)
		a.recomputeFilter()
		return nil
	}
}

func (a *App) filterBackspace(*gocui.Gui, *gocui.View) error {
	if a.scr != screenEndpoints || a.editing || a.filter == "" {
		return nil
	}
	a.filter = a.filter[:len(a.filter)-1]
	a.recomputeFilter()
	return nil
}

func (a *App) recomputeFilter() {
	needle := strings.TrimSpace(a.filter)
	a.filtered = a.filtered[:0]
	if needle == "" {
		for i := range a.opts.Operations {
			a.filtered = append(a.filtered, i)
		}
	} else {
		var scored []scoredIdx
		for i, op := range a.opts.Operations {
			cand := op.Method + " " + op.Path + " " + firstNonEmpty(op.Summary, op.ID) + " " + strings.Join(op.Tags, " ")
			if s, ok := fuzzyMatchScore(needle, cand); ok {
				scored = append(scored, scoredIdx{idx: i, score: s})
			}
		}
		sort.SliceStable(scored, func(i, j int) bool { return scored[i].score < scored[j].score })
		for _, s := range scored {
			a.filtered = append(a.filtered, s.idx)
		}
	}
	if a.selected >= len(a.filtered) {
		a.selected = 0
	}
}

func (a *App) renderFilter() {
	if v, err := a.g.View("filter"); err == nil {
		v.Clear()
		fmt.Fprint(v, a.filter)
	}
}

func (a *App) renderEndpoints() {
	v, err := a.g.View("endpoints")
	if err != nil {
		return
	}
	v.Clear()
	for i, idx := range a.filtered {
		op := a.opts.Operations[idx]
		label := firstNonEmpty(op.Summary, op.ID)
		if label != "" {
			label = " - " + label
		}
		// number prefix for the top 5 results
		prefix := "  "
		if i < 5 {
			prefix = fmt.Sprintf("%d ", i+1)
		}
		fmt.Fprintf(v, "%s%s %s%s\n", prefix, colorizeMethod(op.Method), highlightPathParams(op.Path), label)
	}
	if len(a.filtered) == 0 {
		fmt.Fprintln(v, dim("(no matching operations)"))
	}
	_ = v.SetCursor(0, a.selected)
}

func (a *App) moveSel(delta int) func(*gocui.Gui, *gocui.View) error {
	return func(_ *gocui.Gui, v *gocui.View) error {
		if a.scr != screenEndpoints || len(a.filtered) == 0 {
			return nil
		}
		a.selected = clamp(a.selected+delta, 0, len(a.filtered)-1)
		if v != nil {
			_ = v.SetCursor(0, a.selected)
		}
		return nil
	}
}

func clamp(i, lo, hi int) int {
	if i < lo {
		return lo
	}
	if i > hi {
		return hi
	}
	return i
}

func (a *App) selectEndpointByNumber(num int) func(*gocui.Gui, *gocui.View) error {
	return func(g *gocui.Gui, v *gocui.View) error {
		if a.scr != screenEndpoints {
			return nil
		}
		idx := num - 1
		if idx >= len(a.filtered) {
			return nil
		}
		a.selected = idx
		return a.openBuilder(g, v)
	}
}

func (a *App) openBuilder(*gocui.Gui, *gocui.View) error {
	if a.scr != screenEndpoints || len(a.filtered) == 0 {
		return nil
	}
	op := a.opts.Operations[a.filtered[a.selected]]
	b, err := newBuilder(op,
		tryout.WithBaseURL(a.opts.BaseURL),
		tryout.WithClient(a.opts.Client),
		tryout.WithMinPending(a.opts.MinPending),
		tryout.WithRequestID(a.opts.RequestID),
		tryout.WithHeaders(a.auth.headers(op, a.schemes, a.opts.Token)),
	)
	if err != nil {
		a.log.Error("render form", "operation", op.ID, "err", err)
		a.errorMsg = err.Error()
		return nil
	}
	b.session.OnChange(a.refresh)
	a.b = b
	a.pane = paneParams
	if len(b.params) == 0 && op.RequestBody != nil {
		a.pane = paneBody
	}
	a.scr = screenBuilder
	a.errorMsg = ""
	a.log.Debug("open operation", "operation", op.ID)
	return nil
}

func (a *App) responseToEndpoints(*gocui.Gui, *gocui.View) error {
	if a.scr != screenResponse {
		return nil
	}
	a.scr = screenEndpoints
	a.errorMsg = ""
	return nil
}

func (a *App) tabPane(*gocui.Gui, *gocui.View) error {
	if a.scr != screenBuilder || a.editing || a.auth.open {
		return nil
	}
	if a.pane == paneParams && a.b.op.RequestBody != nil {
		a.pane = paneBody
	} else {
		a.pane = paneParams
	}
	a.updatePanelColors()
	a.setBuilderFocus()
	return nil
}

func (a *App) setBuilderFocus() {
	if a.scr != screenBuilder || a.editing {
		return
	}
	_, _ = a.g.SetCurrentView(paneView(a.pane))
}

func (a *App) moveRow(delta int) func(*gocui.Gui, *gocui.View) error {
	return func(_ *gocui.Gui, v *gocui.View) error {
		if a.scr != screenBuilder || a.editing || v == nil {
			return nil
		}
		ox, oy := v.Origin()
		cx, cy := v.Cursor()
		newY := cy + delta
		if newY < 0 {
			if oy > 0 {
				_ = v.SetOrigin(ox, oy-1)
			}
			return nil
		}
		if oy+newY >= len(a.b.lines(a.pane)) {
			return nil
		}
		if err := v.SetCursor(cx, newY); err != nil {
			// past the bottom edge: scroll instead
			_ = v.SetOrigin(ox, oy+1)
		}
		return nil
	}
}

// selectedLine is the builder line under the cursor of the focused pane.
func (a *App) selectedLine() (line, bool) {
	v, err := a.g.View(paneView(a.pane))
	if err != nil {
		return line{}, false
	}
	_, cy := v.Cursor()
	_, oy := v.Origin()
	lines := a.b.lines(a.pane)
	i := oy + cy
	if i < 0 || i >= len(lines) {
		return line{}, false
	}
	return lines[i], true
}

// builderAction runs fn on the selected line and reports its error in the footer.
func (a *App) builderAction(fn func(line) error) func(*gocui.Gui, *gocui.View) error {
	return func(*gocui.Gui, *gocui.View) error {
		if a.scr != screenBuilder || a.editing || a.auth.open {
			return nil
		}
		l, ok := a.selectedLine()
		if !ok {
			return nil
		}
		a.errorMsg = ""
		if err := fn(l); err != nil {
			a.errorMsg = err.Error()
		}
		return nil
	}
}

func (a *App) activateRow(g *gocui.Gui, v *gocui.View) error {
	var p *prompt
	err := a.builderAction(func(l line) error {
		var err error
		p, err = a.b.activate(l)
		return err
	})(g, v)
	if err != nil || p == nil {
		return err
	}
	if p.external {
		return a.editExternally(p)
	}
	return a.beginEdit(p)
}

func (a *App) removeRow(g *gocui.Gui, v *gocui.View) error {
	return a.builderAction(a.b.remove)(g, v)
}

func (a *App) cycleBranch(g *gocui.Gui, v *gocui.View) error {
	return a.builderAction(func(l line) error {
		_, err := a.b.cycleBranch(l)
		return err
	})(g, v)
}

func (a *App) toggleMode(g *gocui.Gui, v *gocui.View) error {
	return a.builderAction(func(line) error { return a.b.toggleMode() })(g, v)
}

func (a *App) cycleMedia(g *gocui.Gui, v *gocui.View) error {
	return a.builderAction(func(line) error {
		_, err := a.b.cycleMedia()
		return err
	})(g, v)
}

func (a *App) beginEdit(p *prompt) error {
	g := a.g
	a.editing = true
	a.prompt = p

	maxX, maxY := g.Size()
	width := 60
	if width > maxX-4 {
		width = maxX - 4
	}
	height := 2
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	ev, err := g.SetView("edit", x0, y0, x0+width, y0+height)
	if err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		ev.Editable = true
		ev.Editor = singleLineEditor{}
		ev.BgColor = gocui.ColorBlack
		ev.FgColor = gocui.ColorWhite
	}
	ev.Title = fmt.Sprintf(" %s (enter=ok, esc=cancel) ", p.title)
	ev.Clear()
	fmt.Fprint(ev, p.value)
	_ = ev.SetCursor(len(p.value), 0)
	_, err = g.SetCurrentView("edit")
	return err
}

func (a *App) closeEdit() error {
	if !a.editing {
		return nil
	}
	if v, err := a.g.View("edit"); err == nil {
		v.Clear()
		_ = a.g.DeleteView("edit")
	}
	a.editing = false
	a.prompt = nil
	a.setBuilderFocus()
	return nil
}

func (a *App) confirmEdit(_ *gocui.Gui, v *gocui.View) error {
	if !a.editing || a.prompt == nil {
		return nil
	}
	p := a.prompt
	if err := p.apply(viewText(v)); err != nil {
		a.errorMsg = err.Error()
	} else {
		a.errorMsg = ""
	}
	return a.closeEdit()
}

func (a *App) executeRequest(*gocui.Gui, *gocui.View) error {
	if a.scr != screenBuilder || a.editing || a.auth.open {
		return nil
	}
	if strings.TrimSpace(a.opts.BaseURL) == "" {
		a.errorMsg = "base URL unknown (document has no servers); set --base-url or TRYIT_BASE_URL"
		return nil
	}
	a.run()
	return nil
}

func (a *App) run() {
	err := a.b.session.Run(context.Background())
	switch {
	case errors.Is(err, tryout.ErrRequiredMissing):
		a.errorMsg = "required fields are missing: " + a.b.missing()
	case err != nil:
		a.errorMsg = err.Error()
	default:
		a.errorMsg = ""
		a.scr = screenResponse
	}
}

func (a *App) rerun(*gocui.Gui, *gocui.View) error {
	if a.scr != screenResponse || a.b == nil {
		return nil
	}
	a.run()
	return nil
}

func (a *App) scrollResponse(delta int) func(*gocui.Gui, *gocui.View) error {
	return func(_ *gocui.Gui, v *gocui.View) error {
		if a.scr != screenResponse || v == nil {
			return nil
		}
		ox, oy := v.Origin()
		if delta > 0 {
			_ = v.SetOrigin(ox, oy+1)
		} else if oy > 0 {
			_ = v.SetOrigin(ox, oy-1)
		}
		return nil
	}
}

func (a *App) saveResponse(*gocui.Gui, *gocui.View) error {
	if a.scr != screenResponse || a.b == nil {
		return nil
	}
	r := a.b.session.Response()
	if r.Empty() {
		return nil
	}
	path, err := saveDownload(os.TempDir(), httpclient.DownloadURI(r.Content, r.Format))
	if err != nil {
		a.errorMsg = err.Error()
		return nil
	}
	a.errorMsg = "saved to " + path
	return nil
}

func (a *App) renderBuilder() {
	b := a.b
	op := b.op
	if v, err := a.g.View("selected"); err == nil {
		v.Clear()
		label := firstNonEmpty(op.Summary, op.ID)
		if label != "" {
			label = " - " + label
		}
		fmt.Fprintf(v, "%s %s%s\n", colorizeMethod(op.Method), highlightPathParams(op.Path), label)
		fmt.Fprintln(v, dim("base: "+firstNonEmpty(a.opts.BaseURL, "(unset)")))
		if m := op.RequestBody.ActiveMedia(); m != nil {
			mode := "form"
			if !b.session.FormMode() {
				mode = "json"
			}
			fmt.Fprintf(v, "%sbody: %s (%s)%s\n", colorCyan, m.Name, mode, colorReset)
		}
		if len(op.Security) > 0 {
			if a.auth.satisfied(op) || a.opts.Token != "" {
				fmt.Fprintf(v, "%sauth: set%s\n", colorCyan, colorReset)
			} else {
				fmt.Fprintf(v, "%sauth: required (press A)%s\n", colorYellow, colorReset)
			}
		}
	}

	state := b.session.Request()
	for _, p := range []focusPane{paneParams, paneBody} {
		v, err := a.g.View(paneView(p))
		if err != nil {
			continue
		}
		v.Title = "Parameters"
		if p == paneBody {
			v.Title = "Body"
			if _, msg := b.session.RawBody(); msg != "" && !b.session.FormMode() {
				v.Title = "Body - " + msg
			}
		}
		v.Clear()
		for _, l := range b.lines(p) {
			fmt.Fprintln(v, b.text(l, state))
		}
	}
}

func (a *App) renderResponse() {
	v, err := a.g.View("response")
	if err != nil || a.b == nil {
		return
	}
	v.Clear()

	s := a.b.session
	req := s.LastRequest()
	fmt.Fprintf(v, "%s %s\n", colorizeMethod(req.Method), req.URL)
	if s.Pending() {
		fmt.Fprintln(v, colorYellow+"sending..."+colorReset)
		return
	}
	r := s.Response()
	if r.Empty() {
		return
	}
	fmt.Fprintf(v, "status: %s\n", colorizeStatus(r))
	if r.Format != "" {
		fmt.Fprintf(v, "content-type: %s\n", r.Format)
	}
	fmt.Fprintln(v)
	if httpclient.Oversized(r.Content) {
		fmt.Fprintf(v, "The response is too large to display (over %d characters). Press w to save it to a file.\n", httpclient.MaxInlineContent)
		return
	}
	fmt.Fprintln(v, httpclient.Pretty(r.Content, httpclient.DefaultIndent))
}
