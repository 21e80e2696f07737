package clips

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
)

// Sharer hands a written file to the user, e.g. a desktop "open with" dialog.
type Sharer interface {
	Available() bool
	Share(ctx context.Context, path, mimeType, dialogTitle string) error
}

var errSharingUnavailable = errors.New("sharing not available")

type noSharer struct{}

func (noSharer) Available() bool { return false }

func (noSharer) Share(context.Context, string, string, string) error { return errSharingUnavailable }

// OpenSharer opens files with the desktop's default handler. mimeType and
// dialogTitle are advisory; the OS picks the application.
type OpenSharer struct {
	goos     string
	lookPath func(string) (string, error)
	command  func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewOpenSharer returns a sharer for the running OS.
func NewOpenSharer() *OpenSharer {
	return &OpenSharer{goos: runtime.GOOS, lookPath: exec.LookPath, command: exec.CommandContext}
}

// opener returns the command and leading args that open a file on goos.
func opener(goos string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", nil
	case "windows":
		return "explorer", nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", nil
	case "android":
		return "am", []string{"start", "-a", "android.intent.action.VIEW", "-d"}
	}
	return "", nil
}

// Available reports whether the opener binary exists on PATH.
func (s *OpenSharer) Available() bool {
	name, _ := opener(s.goos)
	if name == "" {
		return false
	}
	_, err := s.lookPath(name)
	return err == nil
}

func (s *OpenSharer) Share(ctx context.Context, path, _, _ string) error {
	name, args := opener(s.goos)
	if name == "" {
		return fmt.Errorf("%w on %s", errSharingUnavailable, s.goos)
	}
	target := path
	if s.goos == "android" {
		target = "file://" + path
	}
	cmd := s.command(ctx, name, append(args, target)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	// Reap in the background; some openers stay attached to the GUI app.
	go func() { _ = cmd.Wait() }()
	return nil
}
