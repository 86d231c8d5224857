// Package opener hands URLs to the desktop's default handler.
package opener

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// Command returns the program and arguments that open target on goos.
func Command(goos, target string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{target}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}
	default:
		return "xdg-open", []string{target}
	}
}

// Open launches the default browser for rawURL without waiting for it.
func Open(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("refusing to open %q", rawURL)
	}
	name, args := Command(runtime.GOOS, u.String())
	cmd := exec.CommandContext(ctx, name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", u, err)
	}
	go cmd.Wait()
	return nil
}
