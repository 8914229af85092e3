package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jroimartin/gocui"

	"tryit/internal/httpclient"
	"tryit/internal/model"
)

type authState struct {
	token      string
	tokenType  string
	acquiredAt time.Time
}

type authField int

const (
	authFieldToken authField = iota
	authFieldUser
	authFieldPass
	authFieldScope
)

type authModal struct {
	open     bool
	editing  bool
	names    []string
	selected int
	active   string
	field    authField
	token    string
	username string
	password string
	scope    string
	err      string
	store    map[string]authState
}

func isBearer(ss model.SecurityScheme) bool {
	return ss.Type == "http" && ss.Scheme == "bearer"
}

func isPasswordFlow(ss model.SecurityScheme) bool {
	return ss.Type == "oauth2" && strings.TrimSpace(ss.TokenURL) != ""
}

func isHeaderKey(ss model.SecurityScheme) bool {
	return ss.Type == "apiKey" && ss.In == "header" && ss.ParamName != ""
}

// headers builds the auth headers for op from the stored credentials. The
// configured token is the bearer fallback.
func (m *authModal) headers(op *model.Operation, schemes map[string]model.SecurityScheme, fallback string) map[string]string {
	h := map[string]string{}
	if fallback = strings.TrimSpace(fallback); fallback != "" {
		h["Authorization"] = "Bearer " + fallback
	}
	for _, name := range op.Security {
		st, ok := m.store[name]
		if !ok || strings.TrimSpace(st.token) == "" {
			continue
		}
		ss := schemes[name]
		switch {
		case isHeaderKey(ss):
			h[ss.ParamName] = st.token
		case ss.Type == "apiKey":
			// query and cookie keys are entered as parameters
		default:
			h["Authorization"] = strings.TrimSpace(st.tokenType + " " + st.token)
		}
	}
	return h
}

// satisfied reports whether some security scheme of op has credentials.
func (m *authModal) satisfied(op *model.Operation) bool {
	for _, name := range op.Security {
		if st, ok := m.store[name]; ok && strings.TrimSpace(st.token) != "" {
			return true
		}
	}
	return false
}

func (a *App) layoutAuth(maxX, maxY int) error {
	width := min(maxX-10, 100)
	width = max(width, 34)
	height := max(min(14, maxY-4), 10)
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2
	x1 := x0 + width
	y1 := y0 + height

	if v, err := a.g.SetView("auth-box", x0, y0, x1, y1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Authentication"
	}

	// split panels dynamically so small terminals still work
	leftW := 26
	if width < 60 {
		leftW = width / 3
	}
	maxLeft := (x1 - 2) - (x0 + 1) - 16 - 1
	leftW = max(min(leftW, maxLeft), 12)
	schemesX1 := x0 + leftW

	if v, err := a.g.SetView("auth-schemes", x0+1, y0+2, schemesX1, y1-2); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Schemes"
		v.Highlight = true
		v.SelFgColor = gocui.ColorBlack
		v.SelBgColor = gocui.ColorGreen
	}
	if v, err := a.g.SetView("auth-form", schemesX1+1, y0+2, x1-2, y1-2); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Details"
	}

	a.renderAuth()

	focus := "auth-schemes"
	if a.auth.editing {
		focus = "auth-form"
	}
	if _, err := a.g.SetCurrentView(focus); err != nil {
		return err
	}
	for _, n := range []string{"auth-box", "auth-schemes", "auth-form"} {
		_, _ = a.g.SetViewOnTop(n)
	}
	return nil
}

func (a *App) openAuth(*gocui.Gui, *gocui.View) error {
	if a.auth.open || a.editing {
		return nil
	}
	if len(a.schemes) == 0 {
		a.errorMsg = "the document declares no security schemes"
		return nil
	}
	m := &a.auth
	m.open = true
	m.editing = false
	m.err = ""
	m.selected = 0
	m.field = authFieldToken
	m.names = m.names[:0]
	for name := range a.schemes {
		m.names = append(m.names, name)
	}
	sort.Strings(m.names)
	m.active = m.names[0]
	a.loadAuthForm()
	return nil
}

func (a *App) closeAuth() {
	m := &a.auth
	m.open = false
	m.editing = false
	m.err = ""
	m.field = authFieldToken
	m.active = ""
	for _, n := range []string{"auth-form", "auth-schemes", "auth-box"} {
		if v, err := a.g.View(n); err == nil {
			v.Clear()
			_ = a.g.DeleteView(n)
		}
	}
	a.applyAuth()
}

// applyAuth hands the current credentials to the open operation.
func (a *App) applyAuth() {
	if a.b != nil {
		a.b.session.SetHeaders(a.auth.headers(a.b.op, a.schemes, a.opts.Token))
	}
}

func (a *App) moveAuthSel(delta int) func(*gocui.Gui, *gocui.View) error {
	return func(_ *gocui.Gui, v *gocui.View) error {
		m := &a.auth
		if !m.open || m.editing || len(m.names) == 0 {
			return nil
		}
		m.selected = clamp(m.selected+delta, 0, len(m.names)-1)
		m.active = m.names[m.selected]
		m.err = ""
		a.loadAuthForm()
		if v != nil {
			_ = v.SetCursor(0, m.selected)
		}
		return nil
	}
}

func (a *App) startAuthEdit(*gocui.Gui, *gocui.View) error {
	m := &a.auth
	if !m.open || len(m.names) == 0 {
		return nil
	}
	m.editing = true
	m.err = ""
	m.field = authFieldToken
	if isPasswordFlow(a.schemes[m.active]) {
		m.field = authFieldUser
	}
	return nil
}

// input is the form field being typed into.
func (m *authModal) input() *string {
	switch m.field {
	case authFieldUser:
		return &m.username
	case authFieldPass:
		return &m.password
	case authFieldScope:
		return &m.scope
	default:
		return &m.token
	}
}

func (a *App) authTypeRune(r rune) func(*gocui.Gui, *gocui.View) error {
	return func(*gocui.Gui, *gocui.View) error {
		if !a.auth.open || !a.auth.editing {
			return nil
		}
		*a.auth.input() += string(r)
		return nil
	}
}

func (a *App) authBackspace(*gocui.Gui, *gocui.View) error {
	if !a.auth.open || !a.auth.editing {
		return nil
	}
	if p := a.auth.input(); *p != "" {
		*p = (*p)[:len(*p)-1]
	}
	return nil
}

func (a *App) authNextField(*gocui.Gui, *gocui.View) error {
	m := &a.auth
	if !m.open || !m.editing {
		return nil
	}
	if !isPasswordFlow(a.schemes[m.active]) {
		m.field = authFieldToken
		return nil
	}
	switch m.field {
	case authFieldUser:
		m.field = authFieldPass
	case authFieldPass:
		m.field = authFieldScope
	default:
		m.field = authFieldUser
	}
	return nil
}

func (a *App) clearAuth(*gocui.Gui, *gocui.View) error {
	m := &a.auth
	if !m.open {
		return nil
	}
	delete(m.store, m.active)
	m.token, m.username, m.password, m.scope, m.err = "", "", "", "", ""
	m.editing = false
	return nil
}

func (a *App) submitAuth(*gocui.Gui, *gocui.View) error {
	m := &a.auth
	if !m.open {
		return nil
	}
	name := m.active
	ss, ok := a.schemes[name]
	if !ok {
		return nil
	}

	switch {
	case isBearer(ss) || isHeaderKey(ss):
		tok := strings.TrimSpace(m.token)
		if tok == "" {
			delete(m.store, name)
		} else {
			tokenType := "Bearer"
			if !isBearer(ss) {
				tokenType = ""
			}
			m.store[name] = authState{token: tok, tokenType: tokenType, acquiredAt: time.Now()}
		}
	case isPasswordFlow(ss):
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		token, tokenType, err := httpclient.FetchOAuthPasswordToken(ctx, a.opts.Client, a.opts.BaseURL, ss.TokenURL, m.username, m.password, m.scope)
		if err != nil {
			a.log.Warn("oauth token request failed", "scheme", name, "err", err)
			m.err = err.Error()
			return nil
		}
		if tokenType == "" {
			tokenType = "Bearer"
		}
		m.store[name] = authState{token: token, tokenType: tokenType, acquiredAt: time.Now()}
		a.log.Info("oauth token acquired", "scheme", name)
	default:
		m.err = "unsupported security scheme"
		return nil
	}
	m.editing = false
	m.err = ""
	a.applyAuth()
	return nil
}

func (a *App) loadAuthForm() {
	m := &a.auth
	m.token = m.store[m.active].token
	if a.schemes[m.active].Type != "oauth2" {
		m.username, m.password, m.scope = "", "", ""
	}
}

func (a *App) renderAuth() {
	m := &a.auth
	if v, err := a.g.View("auth-schemes"); err == nil {
		v.Clear()
		for _, name := range m.names {
			status := "[unset]"
			if _, ok := m.store[name]; ok {
				status = "[set]"
			}
			fmt.Fprintf(v, "%s %s\n", status, name)
		}
		_ = v.SetCursor(0, m.selected)
	}

	v, err := a.g.View("auth-form")
	if err != nil {
		return
	}
	v.Clear()
	if m.active == "" {
		fmt.Fprintln(v, "No security schemes.")
		return
	}
	ss := a.schemes[m.active]
	if m.err != "" {
		fmt.Fprintf(v, "%serror: %s%s\n\n", colorRed, m.err, colorReset)
	}
	fmt.Fprintf(v, "scheme: %s\n", m.active)
	fmt.Fprintf(v, "type:   %s\n", ss.Type)
	if ss.Description != "" {
		fmt.Fprintf(v, "%s\n", dim(ss.Description))
	}
	fmt.Fprintln(v)

	switch {
	case isBearer(ss):
		fmt.Fprintln(v, "Bearer token:")
		fmt.Fprintf(v, "%s\n\n", m.token)
		fmt.Fprintln(v, "enter: save   ctrl+d: clear   esc: close")
	case isHeaderKey(ss):
		fmt.Fprintf(v, "API key (header %s):\n", ss.ParamName)
		fmt.Fprintf(v, "%s\n\n", m.token)
		fmt.Fprintln(v, "enter: save   ctrl+d: clear   esc: close")
	case isPasswordFlow(ss):
		fmt.Fprintln(v, "OAuth2 password flow")
		fmt.Fprintf(v, "tokenUrl: %s\n\n", ss.TokenURL)
		fmt.Fprintf(v, "username: %s%s\n", fieldMarker(m.field == authFieldUser), m.username)
		fmt.Fprintf(v, "password: %s%s\n", fieldMarker(m.field == authFieldPass), mask(m.password))
		fmt.Fprintf(v, "scope:    %s%s\n\n", fieldMarker(m.field == authFieldScope), m.scope)
		fmt.Fprintln(v, "tab: next field   enter: fetch token   ctrl+d: clear   esc: close")
	case ss.Type == "oauth2":
		fmt.Fprintln(v, "Only the OAuth2 password flow (flows.password.tokenUrl) is supported.")
	default:
		fmt.Fprintln(v, "(unsupported scheme)")
	}
}

func fieldMarker(active bool) string {
	if active {
		return "> "
	}
	return "  "
}

func mask(s string) string {
	return strings.Repeat("*", len(s))
}
