package setup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/doctotypetech/kitt/internal/config"
	"github.com/doctotypetech/kitt/internal/hostexec"
)

// DefaultRegistry builds the KITT installation plan for goos. Checks
// and command lines are derived entirely from cfg and workDir; there
// is no other source of truth for what gets installed where. The
// package step installs under the user's home, so a host without a
// resolvable home directory cannot be planned.
func DefaultRegistry(cfg config.InstallConfig, workDir, goos string) (*Registry, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	return NewRegistry(
		stepWorkDir(workDir),
		stepModelfile(cfg, workDir),
		stepEntryScript(cfg, workDir),
		stepOllama(cfg),
		stepModel(cfg),
		stepProfile(cfg, workDir),
		stepPackage(home, workDir, goos),
	), nil
}

func shellSpec(cfg config.InstallConfig, dir, line string) hostexec.CommandSpec {
	return hostexec.CommandSpec{Shell: line, Dir: dir, Timeout: cfg.StepTimeout}
}

func stepWorkDir(workDir string) Step {
	local := Action{
		Local: func(ctx context.Context) error {
			return os.MkdirAll(workDir, 0o755)
		},
	}
	return Step{
		Name:        "workdir",
		Description: "Create the kitt working directory",
		Weight:      10,
		Check: func(ctx context.Context, r hostexec.Runner) (bool, error) {
			info, err := os.Stat(workDir)
			return err == nil && info.IsDir(), nil
		},
		Actions: map[string]Action{"linux": local, "darwin": local},
	}
}

func stepModelfile(cfg config.InstallConfig, workDir string) Step {
	path := filepath.Join(workDir, "Modelfile")
	download := Action{
		Specs: []hostexec.CommandSpec{
			{
				Argv:    []string{"curl", "-fsSL", cfg.ModelfileURL, "-o", path},
				Timeout: cfg.StepTimeout,
			},
		},
	}
	return Step{
		Name:        "modelfile",
		Description: "Download the AI-profile definition",
		Weight:      15,
		Check: func(ctx context.Context, r hostexec.Runner) (bool, error) {
			_, err := os.Stat(path)
			return err == nil, nil
		},
		Actions: map[string]Action{"linux": download, "darwin": download},
	}
}

func stepEntryScript(cfg config.InstallConfig, workDir string) Step {
	path := filepath.Join(workDir, "main.py")
	// chmod is a separate spec so a download failure stays
	// distinguishable from the permission change.
	download := Action{
		Specs: []hostexec.CommandSpec{
			{
				Argv:    []string{"curl", "-fsSL", cfg.EntryScriptURL, "-o", path},
				Timeout: cfg.StepTimeout,
			},
			{Argv: []string{"chmod", "755", path}},
		},
	}
	return Step{
		Name:        "entry-script",
		Description: "Download the assistant entry script",
		Weight:      15,
		Check: func(ctx context.Context, r hostexec.Runner) (bool, error) {
			info, err := os.Stat(path)
			if err != nil {
				return false, nil
			}
			return info.Mode().Perm()&0o111 != 0, nil
		},
		Actions: map[string]Action{"linux": download, "darwin": download},
	}
}

func stepOllama(cfg config.InstallConfig) Step {
	check := func(ctx context.Context, r hostexec.Runner) (bool, error) {
		return hostexec.Probe(ctx, r, "command -v ollama >/dev/null 2>&1"), nil
	}
	return Step{
		Name:        "ollama",
		Description: "Install the model-serving daemon",
		Weight:      15,
		Check:       check,
		Actions: map[string]Action{
			"linux": {
				Specs: []hostexec.CommandSpec{
					shellSpec(cfg, "", "curl -fsSL https://ollama.com/install.sh | sh"),
				},
			},
			"darwin": {
				Specs: []hostexec.CommandSpec{
					shellSpec(cfg, "", "brew install ollama"),
				},
				// brew exits non-zero with "already installed" when the
				// formula is present but the check raced a stale PATH.
				// Only that case is tolerated.
				Tolerate: TolerancePolicy{Substrings: []string{"already installed"}},
			},
		},
	}
}

func stepModel(cfg config.InstallConfig) Step {
	pull := Action{
		Specs: []hostexec.CommandSpec{
			{Argv: []string{"ollama", "pull", cfg.Model}, Timeout: cfg.StepTimeout},
		},
	}
	return Step{
		Name:        "model",
		Description: fmt.Sprintf("Pull the %s base model", cfg.Model),
		Weight:      15,
		Check: func(ctx context.Context, r hostexec.Runner) (bool, error) {
			return hostexec.Probe(ctx, r,
				fmt.Sprintf("ollama list 2>/dev/null | grep -Fq %q", cfg.Model)), nil
		},
		Actions: map[string]Action{"linux": pull, "darwin": pull},
	}
}

func stepProfile(cfg config.InstallConfig, workDir string) Step {
	create := Action{
		Specs: []hostexec.CommandSpec{
			{
				Argv:    []string{"ollama", "create", cfg.Profile, "-f", "Modelfile"},
				Dir:     workDir,
				Timeout: cfg.StepTimeout,
			},
		},
	}
	return Step{
		Name:        "profile",
		Description: fmt.Sprintf("Create the %s profile from the Modelfile", cfg.Profile),
		Weight:      15,
		Check: func(ctx context.Context, r hostexec.Runner) (bool, error) {
			return hostexec.Probe(ctx, r,
				fmt.Sprintf("ollama list 2>/dev/null | grep -Fq %q", cfg.Profile)), nil
		},
		Actions: map[string]Action{"linux": create, "darwin": create},
	}
}

func stepPackage(home, workDir, goos string) Step {
	appPath := filepath.Join(home, "Applications", "KITT.app")
	desktopBin := filepath.Join(home, "Desktop", "KITT")

	var check CheckFunc
	switch goos {
	case "darwin":
		check = func(ctx context.Context, r hostexec.Runner) (bool, error) {
			_, err := os.Stat(appPath)
			return err == nil, nil
		}
	default:
		check = func(ctx context.Context, r hostexec.Runner) (bool, error) {
			_, err := os.Stat(desktopBin)
			return err == nil, nil
		}
	}

	return Step{
		Name:        "package",
		Description: "Build the native launcher",
		Weight:      15,
		Check:       check,
		Actions: map[string]Action{
			"linux": {
				Specs: []hostexec.CommandSpec{
					{Shell: "python3 -m pip install pyinstaller --break-system-packages", Dir: workDir},
					{Shell: "pyinstaller --onefile --noconsole main.py", Dir: workDir},
					{Shell: fmt.Sprintf("install -m 755 dist/main %q", desktopBin), Dir: workDir},
				},
			},
			"darwin": {
				Specs: []hostexec.CommandSpec{
					{Shell: "python3 -m pip install py2app --break-system-packages", Dir: workDir},
					{Shell: "rm -f setup.py && py2applet --make-setup main.py", Dir: workDir},
					{Shell: "python3 setup.py py2app -A", Dir: workDir},
					{Shell: fmt.Sprintf("rm -rf %q && mkdir -p %q && mv dist/main.app %q",
						appPath, filepath.Dir(appPath), appPath), Dir: workDir},
					// Launching the freshly built app is best-effort: exit 1
					// is the known benign "no UI session" case on macOS.
					{
						Shell:  fmt.Sprintf("open %q", appPath),
						OKExit: func(code int) bool { return code == 0 || code == 1 },
					},
				},
			},
		},
	}
}
