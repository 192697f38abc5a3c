// Package chaincli wires the Chain construction surface (internal/chain)
// into a multi-command CLI the way the teacher's cmd/turbo/main.go wires
// internal/run, internal/prune, internal/info, and internal/login into
// turbo's command map. Since a Chain is parameterized by a
// *taskresolve.Registry and *parameter.ObjectRegistry that only an
// embedding application can populate (spec §6, §9's registration
// mechanism), this package takes those as constructor arguments rather
// than discovering task classes itself: cmd/taskchain is a thin
// entrypoint over this package, the same relationship turbo's main.go
// has to its own concrete, JS-package-domain internals.
package chaincli

import (
	"os"

	"github.com/fatih/color"
	"github.com/mitchellh/cli"

	"github.com/taskchain-go/taskchain/internal/parameter"
	"github.com/taskchain-go/taskchain/internal/taskchainconfig"
	"github.com/taskchain-go/taskchain/internal/taskresolve"
	"github.com/taskchain-go/taskchain/internal/ui"
)

// App bundles the task registry and object registry an embedding
// application built at init time. The resolved Config from
// internal/taskchainconfig is not held here; each command carries it.
type App struct {
	Registry *taskresolve.Registry
	Objects  *parameter.ObjectRegistry
}

// Main is the whole of what a cmd/taskchain main() needs to call: parse
// args, build the command map, and run it. appName and version feed
// mitchellh/cli's own --version handling.
func (a *App) Main(appName, version string, args []string) int {
	c := cli.NewCLI(appName, version)
	c.Args = args
	c.HelpWriter = os.Stdout
	c.ErrorWriter = os.Stderr

	uiOut := &cli.ColoredUi{
		Ui: &cli.BasicUi{
			Reader:      os.Stdin,
			Writer:      os.Stdout,
			ErrorWriter: os.Stderr,
		},
		OutputColor: cli.UiColorNone,
		InfoColor:   cli.UiColorNone,
		WarnColor:   cli.UiColorYellow,
		ErrorColor:  cli.UiColorRed,
	}

	cfg, err := taskchainconfig.ParseAndValidate(c.Args, appName)
	if err != nil {
		uiOut.Error(ui.ERROR_PREFIX + " " + color.RedString(err.Error()))
		return 1
	}
	if cfg == nil {
		// --help/--version/bare "help": ParseAndValidate already
		// special-cased it, mitchellh/cli's own dispatch prints usage.
		cfg = &taskchainconfig.Config{}
	}

	c.Commands = map[string]cli.CommandFactory{
		"run": func() (cli.Command, error) {
			return &RunCommand{App: a, Config: cfg, Ui: uiOut}, nil
		},
		"graph": func() (cli.Command, error) {
			return &GraphCommand{App: a, Config: cfg, Ui: uiOut}, nil
		},
		"force": func() (cli.Command, error) {
			return &ForceCommand{App: a, Config: cfg, Ui: uiOut}, nil
		},
		"link": func() (cli.Command, error) {
			return &LinkCommand{Config: cfg, Ui: uiOut}, nil
		},
		"login": func() (cli.Command, error) {
			return &LoginCommand{Config: cfg, Ui: uiOut}, nil
		},
		"logout": func() (cli.Command, error) {
			return &LogoutCommand{Config: cfg, Ui: uiOut}, nil
		},
	}

	exitCode, err := c.Run()
	if err != nil {
		uiOut.Error(err.Error())
	}
	return exitCode
}
