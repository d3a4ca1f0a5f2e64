package setup

import (
	"context"
	"fmt"
	"strings"

	"github.com/doctotypetech/kitt/internal/hostexec"
)

// HostInfo describes the host the installer is about to modify.
type HostInfo struct {
	GOOS string // "linux" or "darwin"
	Name string // e.g. "Ubuntu 22.04.3 LTS", "macOS 14.5"
}

// DetectHost identifies the host OS for progress banners and error
// messages. Unsupported platforms are a configuration error: the plan
// has no actions for them.
func DetectHost(ctx context.Context, r hostexec.Runner, goos string) (HostInfo, error) {
	info := HostInfo{GOOS: goos}

	switch goos {
	case "darwin":
		out, err := hostexec.Output(ctx, r, "sw_vers -productVersion 2>/dev/null")
		if err == nil && strings.TrimSpace(out) != "" {
			info.Name = "macOS " + strings.TrimSpace(out)
		} else {
			info.Name = "macOS"
		}
		return info, nil
	case "linux":
		out, err := hostexec.Output(ctx, r, "cat /etc/os-release 2>/dev/null")
		if err != nil {
			info.Name = "Linux"
			return info, nil
		}
		for _, line := range strings.Split(out, "\n") {
			if k, v, ok := strings.Cut(strings.TrimSpace(line), "="); ok && k == "PRETTY_NAME" {
				info.Name = strings.Trim(v, "\"")
			}
		}
		if info.Name == "" {
			info.Name = "Linux"
		}
		return info, nil
	default:
		return info, fmt.Errorf("%w: unsupported OS %q", ErrConfiguration, goos)
	}
}
