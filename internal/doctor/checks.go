package doctor

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/doctotypetech/kitt/internal/config"
	"github.com/doctotypetech/kitt/internal/hostexec"
)

type check struct {
	name string
	fn   func(ctx context.Context, r hostexec.Runner) CheckResult
}

func allChecks(cfg config.InstallConfig, workDir, goos string) []check {
	return []check{
		{"ollama-binary", checkOllamaBinary},
		{"daemon-reachable", checkDaemonReachable},
		{"model-pulled", checkModelPulled(cfg)},
		{"profile-created", checkProfileCreated(cfg)},
		{"modelfile", checkArtifact("modelfile", filepath.Join(workDir, "Modelfile"))},
		{"entry-script", checkArtifact("entry-script", filepath.Join(workDir, "main.py"))},
		{"packager", checkPackager(goos)},
	}
}

func checkOllamaBinary(ctx context.Context, r hostexec.Runner) CheckResult {
	if hostexec.Probe(ctx, r, "command -v ollama >/dev/null 2>&1") {
		return CheckResult{
			Name:     "ollama-binary",
			Category: "binary",
			Passed:   true,
			Message:  "ollama binary found",
		}
	}
	return CheckResult{
		Name:     "ollama-binary",
		Category: "binary",
		Passed:   false,
		Message:  "ollama binary not found",
		FixCmd:   "curl -fsSL https://ollama.com/install.sh | sh",
	}
}

func checkDaemonReachable(ctx context.Context, r hostexec.Runner) CheckResult {
	if hostexec.Probe(ctx, r, "ollama list >/dev/null 2>&1") {
		return CheckResult{
			Name:     "daemon-reachable",
			Category: "connectivity",
			Passed:   true,
			Message:  "model daemon answering",
		}
	}
	return CheckResult{
		Name:     "daemon-reachable",
		Category: "connectivity",
		Passed:   false,
		Message:  "model daemon not answering",
		FixCmd:   "ollama serve &",
	}
}

func checkModelPulled(cfg config.InstallConfig) func(context.Context, hostexec.Runner) CheckResult {
	return func(ctx context.Context, r hostexec.Runner) CheckResult {
		if hostexec.Probe(ctx, r, fmt.Sprintf("ollama list 2>/dev/null | grep -Fq %q", cfg.Model)) {
			return CheckResult{
				Name:     "model-pulled",
				Category: "model",
				Passed:   true,
				Message:  fmt.Sprintf("base model %s pulled", cfg.Model),
			}
		}
		return CheckResult{
			Name:     "model-pulled",
			Category: "model",
			Passed:   false,
			Message:  fmt.Sprintf("base model %s not pulled", cfg.Model),
			FixCmd:   fmt.Sprintf("ollama pull %s", cfg.Model),
		}
	}
}

func checkProfileCreated(cfg config.InstallConfig) func(context.Context, hostexec.Runner) CheckResult {
	return func(ctx context.Context, r hostexec.Runner) CheckResult {
		if hostexec.Probe(ctx, r, fmt.Sprintf("ollama list 2>/dev/null | grep -Fq %q", cfg.Profile)) {
			return CheckResult{
				Name:     "profile-created",
				Category: "profile",
				Passed:   true,
				Message:  fmt.Sprintf("profile %s created", cfg.Profile),
			}
		}
		return CheckResult{
			Name:     "profile-created",
			Category: "profile",
			Passed:   false,
			Message:  fmt.Sprintf("profile %s not created", cfg.Profile),
			FixCmd:   fmt.Sprintf("ollama create %s -f ~/.kitt/Modelfile", cfg.Profile),
		}
	}
}

func checkArtifact(name, path string) func(context.Context, hostexec.Runner) CheckResult {
	return func(ctx context.Context, r hostexec.Runner) CheckResult {
		if hostexec.Probe(ctx, r, fmt.Sprintf("test -f %q", path)) {
			return CheckResult{
				Name:     name,
				Category: "artifacts",
				Passed:   true,
				Message:  fmt.Sprintf("%s present", path),
			}
		}
		return CheckResult{
			Name:     name,
			Category: "artifacts",
			Passed:   false,
			Message:  fmt.Sprintf("%s missing", path),
			FixCmd:   "kitt install",
		}
	}
}

func checkPackager(goos string) func(context.Context, hostexec.Runner) CheckResult {
	binary := "pyinstaller"
	fix := "python3 -m pip install pyinstaller --break-system-packages"
	if goos == "darwin" {
		binary = "py2applet"
		fix = "python3 -m pip install py2app --break-system-packages"
	}
	return func(ctx context.Context, r hostexec.Runner) CheckResult {
		if hostexec.Probe(ctx, r, fmt.Sprintf("command -v %s >/dev/null 2>&1", binary)) {
			return CheckResult{
				Name:     "packager",
				Category: "packager",
				Passed:   true,
				Message:  fmt.Sprintf("%s found", binary),
			}
		}
		return CheckResult{
			Name:     "packager",
			Category: "packager",
			Passed:   false,
			Message:  fmt.Sprintf("%s not found", binary),
			FixCmd:   fix,
		}
	}
}
