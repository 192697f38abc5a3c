package chaincli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/google/chrometracing"
	"github.com/mitchellh/cli"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/taskchain-go/taskchain/internal/chain"
	"github.com/taskchain-go/taskchain/internal/confignode"
	"github.com/taskchain-go/taskchain/internal/taskchainconfig"
	"github.com/taskchain-go/taskchain/internal/ui"
)

// RunCommand evaluates one or more tasks, the CLI surface over
// internal/engine's Value (spec §4.7), styled after the teacher's
// RunCommand in internal/run/run.go.
type RunCommand struct {
	App    *App
	Config *taskchainconfig.Config
	Ui     *cli.ColoredUi
}

func (c *RunCommand) Synopsis() string { return "Evaluate one or more tasks" }

func (c *RunCommand) Help() string {
	return strings.TrimSpace(`
Usage: chain run [task ...] [options]

    Evaluate the named tasks (every task in the chain, if none are
    given), recursively evaluating their inputs first and caching
    results under the artifact root.

Options:
  --config=<path>   Config document to load.
  --context=<path>  Context overlay to apply, may be repeated.
  --part=<name>     Part selector into a multi-part config document.
  --force           Ignore cached results and recompute every selected
                    task.
  --delete-data     Combined with --force, delete prior artifacts
                    instead of merely marking them stale.
  --profile=<file>  Write a Chrome-trace-format timeline of task
                    evaluation to file.
`)
}

type runArgs struct {
	tasks      []string
	configPath string
	contexts   []string
	part       string
	force      bool
	deleteData bool
	profile    string
}

func parseRunArgs(args []string) (*runArgs, error) {
	ra := &runArgs{}
	for _, arg := range args {
		switch {
		case arg == "--force":
			ra.force = true
		case arg == "--delete-data":
			ra.deleteData = true
		case strings.HasPrefix(arg, "--config="):
			ra.configPath = arg[len("--config="):]
		case strings.HasPrefix(arg, "--context="):
			ra.contexts = append(ra.contexts, arg[len("--context="):])
		case strings.HasPrefix(arg, "--part="):
			ra.part = arg[len("--part="):]
		case strings.HasPrefix(arg, "--profile="):
			ra.profile = arg[len("--profile="):]
		case arg == "-v", arg == "-vv", arg == "-vvv",
			strings.HasPrefix(arg, "--root="), strings.HasPrefix(arg, "--concurrency="),
			strings.HasPrefix(arg, "--remote="), strings.HasPrefix(arg, "--token="),
			strings.HasPrefix(arg, "--cwd="):
			// Global flags, already applied by taskchainconfig.ParseAndValidate.
		case strings.HasPrefix(arg, "-"):
			return nil, fmt.Errorf("unknown flag %q", arg)
		default:
			ra.tasks = append(ra.tasks, arg)
		}
	}
	return ra, nil
}

func (c *RunCommand) Run(args []string) int {
	for _, arg := range args {
		if arg == "-h" || arg == "--help" {
			c.Ui.Output(c.Help())
			return 1
		}
	}

	ra, err := parseRunArgs(args)
	if err != nil {
		c.logError(err)
		return 1
	}

	if ra.profile != "" {
		chrometracing.EnableTracing()
		defer func() {
			if cerr := chrometracing.Close(); cerr != nil {
				c.Ui.Warn(fmt.Sprintf("%s failed to close trace file: %v", ui.WARNING_PREFIX, cerr))
				return
			}
			if rerr := os.Rename(chrometracing.Path(), ra.profile); rerr != nil {
				c.Ui.Warn(fmt.Sprintf("%s failed to move trace file to %s: %v", ui.WARNING_PREFIX, ra.profile, rerr))
			}
		}()
	}

	ch, err := c.buildChain(ra)
	if err != nil {
		c.logError(err)
		return 1
	}

	if ra.force {
		if err := ch.Force(ra.tasks, true, ra.deleteData); err != nil {
			c.logError(err)
			return 1
		}
	}

	targets := ra.tasks
	if len(targets) == 0 {
		for name := range ch.Tasks() {
			targets = append(targets, name)
		}
	}

	concurrency := c.Config.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := semaphore.NewWeighted(concurrency)
	g, gctx := errgroup.WithContext(context.Background())

	var mu sync.Mutex
	exitCode := 0
	for _, name := range targets {
		name := name
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			trace := chrometracing.Event(name)
			_, err := ch.Value(gctx, name)
			trace.Done()

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.Ui.Error(fmt.Sprintf("%s %s: %s", ui.ERROR_PREFIX, name, color.RedString(err.Error())))
				exitCode = 1
				return nil
			}
			c.Ui.Info(fmt.Sprintf("%s %s", color.GreenString("✓"), name))
			return nil
		})
	}
	_ = g.Wait()
	return exitCode
}

func (c *RunCommand) buildChain(ra *runArgs) (*chain.Chain, error) {
	if ra.configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	contextSources := make([]confignode.Source, 0, len(ra.contexts))
	for _, path := range ra.contexts {
		contextSources = append(contextSources, confignode.Source{Path: path})
	}

	cfg := chain.Config{
		ArtifactRootPath: c.Config.ArtifactRootPath,
		ConfigSource:     ra.configPath,
		Context:          contextSources,
		Part:             ra.part,
		ParameterMode:    true,
		RemoteMirror:     c.Config.Remote,
	}
	return chain.New(cfg, c.App.Registry, c.App.Objects)
}

func (c *RunCommand) logError(err error) {
	c.Config.Logger.Error("", "error", err)
	c.Ui.Error(fmt.Sprintf("%s %s", ui.ERROR_PREFIX, color.RedString(err.Error())))
}
