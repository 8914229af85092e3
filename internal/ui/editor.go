package ui

import (
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jroimartin/gocui"
)

// editExternally asks Run to suspend the UI and edit p in $EDITOR.
func (a *App) editExternally(p *prompt) error {
	a.suspend = p
	return gocui.ErrQuit
}

func editorCommand() []string {
	editor := strings.TrimSpace(os.Getenv("TRYIT_EDITOR"))
	if editor == "" {
		editor = strings.TrimSpace(os.Getenv("EDITOR"))
	}
	// Minimal shell-like splitting: whitespace, no quotes/escapes.
	fields := strings.Fields(editor)
	if len(fields) == 0 {
		return []string{"vi"}
	}
	return fields
}

func runExternalEditor(p *prompt) error {
	f, err := os.CreateTemp("", "tryit-body-*.json")
	if err != nil {
		return err
	}
	file := f.Name()
	defer os.Remove(file)

	seed := p.value
	if seed != "" && !strings.HasSuffix(seed, "\n") {
		seed += "\n"
	}
	_, err = f.WriteString(seed)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	args := editorCommand()
	cmd := exec.Command(args[0], append(args[1:], file)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor: %w", err)
	}

	b, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	return p.apply(strings.TrimSpace(string(b)))
}

// saveDownload writes the content of a data URI to a new file in dir and
// returns its path.
func saveDownload(dir, uri string) (string, error) {
	meta, data, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasPrefix(uri, "data:") {
		return "", fmt.Errorf("not a data URI")
	}
	content, err := url.PathUnescape(data)
	if err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	ext := ".txt"
	if strings.HasPrefix(meta, "text/csv") {
		ext = ".csv"
	}
	f, err := os.CreateTemp(dir, "tryit-response-*"+ext)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return "", err
	}
	return filepath.Clean(f.Name()), nil
}
