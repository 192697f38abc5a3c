package chaincli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/mitchellh/cli"

	"github.com/taskchain-go/taskchain/internal/chain"
	"github.com/taskchain-go/taskchain/internal/confignode"
	"github.com/taskchain-go/taskchain/internal/taskchainconfig"
	"github.com/taskchain-go/taskchain/internal/ui"
)

// ForceCommand marks tasks stale, the standalone CLI surface over
// chain.Force (spec §6's `.force(names, recompute, delete_data)`).
// chain.Force's mark is chain-local and never itself persisted, so a
// process-lifetime command has to recompute before exiting or the mark
// would simply vanish; this evaluates every marked task once forcing
// is done, the same way RunCommand's own --force flag does within a
// single `chain run` invocation.
type ForceCommand struct {
	App    *App
	Config *taskchainconfig.Config
	Ui     *cli.ColoredUi
}

func (c *ForceCommand) Synopsis() string { return "Mark tasks for recomputation" }

func (c *ForceCommand) Help() string {
	return strings.TrimSpace(`
Usage: chain force [task ...] --config=<path> [options]

    Mark the named tasks (every task, if none are given) as needing
    recomputation, and evaluate them immediately so the new results are
    persisted.

Options:
  --config=<path>   Config document to load.
  --context=<path>  Context overlay to apply, may be repeated.
  --part=<name>     Part selector into a multi-part config document.
  --no-propagate    Mark only the named tasks, not their downstream
                    dependents.
  --delete-data     Delete prior artifacts instead of merely marking
                    them stale.
`)
}

func (c *ForceCommand) Run(args []string) int {
	for _, arg := range args {
		if arg == "-h" || arg == "--help" {
			c.Ui.Output(c.Help())
			return 1
		}
	}

	var configPath, part string
	var contexts, tasks []string
	propagate := true
	deleteData := false
	for _, arg := range args {
		switch {
		case arg == "--no-propagate":
			propagate = false
		case arg == "--delete-data":
			deleteData = true
		case strings.HasPrefix(arg, "--config="):
			configPath = arg[len("--config="):]
		case strings.HasPrefix(arg, "--context="):
			contexts = append(contexts, arg[len("--context="):])
		case strings.HasPrefix(arg, "--part="):
			part = arg[len("--part="):]
		case strings.HasPrefix(arg, "-"):
			c.Ui.Error(fmt.Sprintf("%s unknown flag %q", ui.ERROR_PREFIX, arg))
			return 1
		default:
			tasks = append(tasks, arg)
		}
	}
	if configPath == "" {
		c.Ui.Error(fmt.Sprintf("%s --config is required", ui.ERROR_PREFIX))
		return 1
	}

	contextSources := make([]confignode.Source, 0, len(contexts))
	for _, p := range contexts {
		contextSources = append(contextSources, confignode.Source{Path: p})
	}

	ch, err := chain.New(chain.Config{
		ArtifactRootPath: c.Config.ArtifactRootPath,
		ConfigSource:     configPath,
		Context:          contextSources,
		Part:             part,
		ParameterMode:    true,
		RemoteMirror:     c.Config.Remote,
	}, c.App.Registry, c.App.Objects)
	if err != nil {
		c.Ui.Error(fmt.Sprintf("%s %s", ui.ERROR_PREFIX, color.RedString(err.Error())))
		return 1
	}

	if err := ch.Force(tasks, propagate, deleteData); err != nil {
		c.Ui.Error(fmt.Sprintf("%s %s", ui.ERROR_PREFIX, color.RedString(err.Error())))
		return 1
	}

	// Forcing with propagation marks every downstream dependent too
	// (chain.Force), so recomputation has to sweep the whole chain to
	// reach them; without propagation only the named tasks were marked.
	targets := tasks
	if len(targets) == 0 || propagate {
		targets = nil
		for name := range ch.Tasks() {
			targets = append(targets, name)
		}
	}

	ctx := context.Background()
	exitCode := 0
	for _, name := range targets {
		if _, err := ch.Value(ctx, name); err != nil {
			c.Ui.Error(fmt.Sprintf("%s %s: %s", ui.ERROR_PREFIX, name, color.RedString(err.Error())))
			exitCode = 1
			continue
		}
		c.Ui.Info(fmt.Sprintf("%s recomputed %s", color.GreenString("✓"), name))
	}
	return exitCode
}
