// Package ui is the gocui terminal front-end: an operation list with a fuzzy
// filter, the request form of one operation, the response and an auth modal.
package ui

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jroimartin/gocui"

	"tryit/internal/httpclient"
	"tryit/internal/model"
)

type screen int

const (
	screenEndpoints screen = iota
	screenBuilder
	screenResponse
)

// Options configures the App.
type Options struct {
	Operations []*model.Operation
	Schemes    []model.SecurityScheme
	BaseURL    string
	// Token is sent as a bearer token unless the auth modal sets another.
	Token      string
	Client     *http.Client
	MinPending time.Duration
	RequestID  bool
}

type App struct {
	opts    Options
	log     *slog.Logger
	schemes map[string]model.SecurityScheme

	mu sync.Mutex
	g  *gocui.Gui

	scr screen

	filter   string
	filtered []int
	selected int

	b    *builder
	pane focusPane

	editing bool
	prompt  *prompt

	auth authModal

	// suspend is a prompt waiting to be edited in $EDITOR.
	suspend *prompt

	errorMsg string
}

func NewApp(opts Options) *App {
	if opts.Client == nil {
		opts.Client = httpclient.NewClient(httpclient.DefaultTimeout)
	}
	a := &App{
		opts:    opts,
		log:     slog.Default().With("component", "ui"),
		schemes: map[string]model.SecurityScheme{},
		scr:     screenEndpoints,
		auth:    authModal{store: map[string]authState{}},
	}
	for _, s := range opts.Schemes {
		a.schemes[s.Name] = s
	}
	a.recomputeFilter()
	return a
}

// singleLineEditor is an editor that doesn't consume Enter (lets keybinding handle it)
type singleLineEditor struct{}

func (e singleLineEditor) Edit(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) {
	switch {
	case key == gocui.KeyBackspace || key == gocui.KeyBackspace2:
		v.EditDelete(true)
	case key == gocui.KeyDelete:
		v.EditDelete(false)
	case key == gocui.KeyArrowLeft:
		v.MoveCursor(-1, 0, false)
	case key == gocui.KeyArrowRight:
		v.MoveCursor(1, 0, false)
	case key == gocui.KeyHome || key == gocui.KeyCtrlA:
		v.SetCursor(0, 0)
	case key == gocui.KeyEnd || key == gocui.KeyCtrlE:
		v.SetCursor(len(viewText(v)), 0)
	case key == gocui.KeyEnter:
		// don't handle - let keybinding process it
	case key == gocui.KeySpace:
		v.EditWrite(' ')
	case ch != 0 && mod == 0:
		v.EditWrite(ch)
	}
}

func (a *App) Run() error {
	// gocui has no suspend/resume, so running $EDITOR exits the main loop,
	// runs the editor and then re-creates the GUI.
	for {
		g, err := gocui.NewGui(gocui.OutputNormal)
		if err != nil {
			return err
		}
		a.mu.Lock()
		a.g = g
		a.mu.Unlock()

		g.BgColor = gocui.ColorBlack
		g.FgColor = gocui.ColorWhite
		g.Cursor = true
		g.InputEsc = true
		g.SetManagerFunc(a.layout)

		if err := a.bindKeys(); err != nil {
			g.Close()
			return err
		}

		err = g.MainLoop()
		a.mu.Lock()
		a.g = nil
		a.mu.Unlock()
		g.Close()

		if p := a.suspend; p != nil {
			a.suspend = nil
			if err := runExternalEditor(p); err != nil {
				a.errorMsg = err.Error()
			}
			continue
		}

		if err != nil && err != gocui.ErrQuit {
			return err
		}
		return nil
	}
}

// refresh redraws from any goroutine, e.g. when a call completes.
func (a *App) refresh() {
	a.mu.Lock()
	g := a.g
	a.mu.Unlock()
	if g != nil {
		g.Update(func(*gocui.Gui) error { return nil })
	}
}

func (a *App) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	if v, err := g.SetView("header", 0, 0, maxX-1, 2); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Frame = false
		v.BgColor = gocui.ColorBlack
		v.FgColor = gocui.ColorWhite
		fmt.Fprintln(v, colorGreen+"tryit"+colorReset+"  -  OpenAPI try-it-out console")
	}

	if v, err := g.SetView("footer", 0, maxY-2, maxX-1, maxY); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Frame = false
		v.BgColor = gocui.ColorBlack
		v.FgColor = gocui.ColorWhite
	}
	a.renderFooter()

	if a.auth.open {
		return a.layoutAuth(maxX, maxY)
	}

	switch a.scr {
	case screenEndpoints:
		return a.layoutEndpoints(maxX, maxY)
	case screenBuilder:
		return a.layoutBuilder(maxX, maxY)
	case screenResponse:
		return a.layoutResponse(maxX, maxY)
	default:
		return nil
	}
}

func (a *App) layoutBuilder(maxX, maxY int) error {
	panels := []string{"params"}
	if a.b.op.RequestBody != nil {
		panels = append(panels, "body")
	}
	if a.pane == paneBody && len(panels) == 1 {
		a.pane = paneParams
	}

	keep := append([]string{"selected"}, panels...)
	if a.editing {
		keep = append(keep, "edit")
	}
	a.clearMainViews(keep)

	if v, err := a.g.SetView("selected", 0, 2, maxX-1, 6); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Selected operation"
	}

	top := 6
	bottom := maxY - 3
	height := (bottom - top) / len(panels)
	for i, panel := range panels {
		y0 := top + i*height
		y1 := top + (i+1)*height
		if i == len(panels)-1 {
			y1 = bottom
		}
		if v, err := a.g.SetView(panel, 0, y0, maxX-1, y1); err != nil {
			if err != gocui.ErrUnknownView {
				return err
			}
			v.Highlight = true
		}
	}

	a.renderBuilder()
	a.updatePanelColors()

	if a.editing {
		if _, err := a.g.View("edit"); err == nil {
			_, _ = a.g.SetViewOnTop("edit")
			_, _ = a.g.SetCurrentView("edit")
		}
	} else {
		a.setBuilderFocus()
	}
	return nil
}

func paneView(p focusPane) string {
	if p == paneBody {
		return "body"
	}
	return "params"
}

func (a *App) updatePanelColors() {
	for _, p := range []focusPane{paneParams, paneBody} {
		v, err := a.g.View(paneView(p))
		if err != nil {
			continue
		}
		if a.pane == p && !a.editing {
			v.SelBgColor = gocui.ColorGreen
			v.SelFgColor = gocui.ColorBlack
			v.FgColor = gocui.ColorWhite
		} else {
			v.SelBgColor = gocui.ColorDefault
			v.SelFgColor = gocui.ColorDefault
			v.FgColor = gocui.ColorDefault
		}
	}
}

func (a *App) layoutResponse(maxX, maxY int) error {
	a.clearMainViews([]string{"response"})

	if v, err := a.g.SetView("response", 0, 2, maxX-1, maxY-3); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Response"
		v.Wrap = false
		v.Autoscroll = false
	}
	a.renderResponse()
	if _, err := a.g.SetCurrentView("response"); err != nil {
		return err
	}
	return nil
}

func (a *App) clearMainViews(keep []string) {
	keepSet := map[string]bool{"header": true, "footer": true}
	for _, k := range keep {
		keepSet[k] = true
	}

	for _, n := range []string{"filter", "endpoints", "selected", "params", "body", "edit", "response"} {
		if keepSet[n] {
			continue
		}
		if v, err := a.g.View(n); err == nil {
			v.Clear()
			_ = a.g.DeleteView(n)
		}
	}
}

type binding struct {
	view    string
	key     any
	handler func(*gocui.Gui, *gocui.View) error
}

func (a *App) bindKeys() error {
	bindings := []binding{
		{"", gocui.KeyCtrlC, a.quit},
		{"", gocui.KeyEsc, a.back},
		{"", gocui.KeyTab, a.tabPane},
		{"", gocui.KeyCtrlR, a.executeRequest},

		{"endpoints", gocui.KeyArrowDown, a.moveSel(1)},
		{"endpoints", gocui.KeyArrowUp, a.moveSel(-1)},
		{"endpoints", gocui.KeyEnter, a.openBuilder},
		{"endpoints", gocui.KeyBackspace, a.filterBackspace},
		{"endpoints", gocui.KeyBackspace2, a.filterBackspace},
		{"endpoints", gocui.KeyCtrlA, a.openAuth},

		{"edit", gocui.KeyEnter, a.confirmEdit},

		{"response", gocui.KeyArrowDown, a.scrollResponse(1)},
		{"response", gocui.KeyArrowUp, a.scrollResponse(-1)},
		{"response", 'r', a.rerun},
		{"response", 'w', a.saveResponse},
		{"response", 'q', a.quit},
		{"response", 'A', a.openAuth},
		{"response", gocui.KeyEnter, a.responseToEndpoints},

		{"auth-schemes", gocui.KeyArrowDown, a.moveAuthSel(1)},
		{"auth-schemes", gocui.KeyArrowUp, a.moveAuthSel(-1)},
		{"auth-schemes", gocui.KeyEnter, a.startAuthEdit},
		{"auth-form", gocui.KeyEnter, a.submitAuth},
		// ctrl+d so normal typing (e.g. emails) is never clobbered
		{"auth-form", gocui.KeyCtrlD, a.clearAuth},
		{"auth-form", gocui.KeyBackspace, a.authBackspace},
		{"auth-form", gocui.KeyBackspace2, a.authBackspace},
		{"auth-form", gocui.KeyTab, a.authNextField},
	}
	for _, view := range []string{"params", "body"} {
		bindings = append(bindings,
			binding{view, gocui.KeyArrowDown, a.moveRow(1)},
			binding{view, gocui.KeyArrowUp, a.moveRow(-1)},
			binding{view, gocui.KeyEnter, a.activateRow},
			binding{view, 'd', a.removeRow},
			binding{view, 'o', a.cycleBranch},
			binding{view, 'm', a.toggleMode},
			binding{view, 't', a.cycleMedia},
			binding{view, 'q', a.quit},
			binding{view, 'A', a.openAuth},
		)
	}
	// number shortcuts 1-5 for quick operation selection
	for i := 1; i <= 5; i++ {
		bindings = append(bindings, binding{"endpoints", rune('0' + i), a.selectEndpointByNumber(i)})
	}
	// printable ASCII types into the filter and the auth form
	for r := rune(32); r <= rune(126); r++ {
		if r < '1' || r > '5' {
			bindings = append(bindings, binding{"endpoints", r, a.appendFilterRune(r)})
		}
		bindings = append(bindings, binding{"auth-form", r, a.authTypeRune(r)})
	}

	for _, b := range bindings {
		if err := a.g.SetKeybinding(b.view, b.key, gocui.ModNone, b.handler); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) quit(*gocui.Gui, *gocui.View) error { return gocui.ErrQuit }

func (a *App) back(*gocui.Gui, *gocui.View) error {
	if a.auth.open {
		a.closeAuth()
		return nil
	}
	if a.editing {
		return a.closeEdit()
	}
	switch a.scr {
	case screenResponse:
		a.scr = screenBuilder
	case screenBuilder:
		a.scr = screenEndpoints
	case screenEndpoints:
		// no previous screen
	}
	a.errorMsg = ""
	return nil
}

func (a *App) renderFooter() {
	v, err := a.g.View("footer")
	if err != nil {
		return
	}
	v.Clear()
	msg := a.errorMsg
	if msg != "" {
		msg = colorRed + msg + colorReset
	} else {
		msg = a.footerHelp()
	}
	fmt.Fprint(v, msg)
}

func (a *App) footerHelp() string {
	if a.auth.open {
		return "auth: enter=edit/save   tab=next field   ctrl+d=clear   esc=close"
	}
	switch a.scr {
	case screenEndpoints:
		return "type: filter   1-5: quick select   enter: select   ctrl+a: auth   ctrl+c: quit"
	case screenBuilder:
		if a.editing {
			return "enter: ok   esc: cancel"
		}
		return "tab: pane   enter: edit/expand/add   d: clear/remove   o: oneOf   m: form/json   t: media type   ctrl+r: run   A: auth   esc: back"
	case screenResponse:
		return "up/down: scroll   r: rerun   w: save   enter: operations   A: auth   esc: back"
	}
	return ""
}

func viewText(v *gocui.View) string {
	// gocui includes a trailing newline
	return strings.TrimSuffix(v.Buffer(), "\n")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}
