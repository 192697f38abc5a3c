package chaincli

import (
	"fmt"
	"os"
	"os/exec"
	"path"
	"strings"

	"github.com/fatih/color"
	"github.com/mitchellh/cli"
	"github.com/pyr-sh/dag"

	"github.com/taskchain-go/taskchain/internal/chain"
	"github.com/taskchain-go/taskchain/internal/confignode"
	"github.com/taskchain-go/taskchain/internal/taskchainconfig"
	"github.com/taskchain-go/taskchain/internal/ui"
)

// GraphCommand renders the linked dependency DAG as Dot, matching the
// teacher's `turbo run --graph` behavior but as its own subcommand.
type GraphCommand struct {
	App    *App
	Config *taskchainconfig.Config
	Ui     *cli.ColoredUi
}

func (c *GraphCommand) Synopsis() string { return "Render the task dependency graph" }

func (c *GraphCommand) Help() string {
	return strings.TrimSpace(`
Usage: chain graph --config=<path> [options]

    Render the linked dependency graph as Dot. With an output file whose
    extension Graphviz recognizes, and Graphviz installed, renders an
    image directly; otherwise prints the raw Dot source.

Options:
  --config=<path>   Config document to load.
  --context=<path>  Context overlay to apply, may be repeated.
  --part=<name>     Part selector into a multi-part config document.
  --output=<file>   Write the rendered graph to file instead of stdout.
`)
}

func (c *GraphCommand) Run(args []string) int {
	for _, arg := range args {
		if arg == "-h" || arg == "--help" {
			c.Ui.Output(c.Help())
			return 1
		}
	}

	var configPath, part, output string
	var contexts []string
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--config="):
			configPath = arg[len("--config="):]
		case strings.HasPrefix(arg, "--context="):
			contexts = append(contexts, arg[len("--context="):])
		case strings.HasPrefix(arg, "--part="):
			part = arg[len("--part="):]
		case strings.HasPrefix(arg, "--output="):
			output = arg[len("--output="):]
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

	dotString := string(ch.Graph().Dot(&dag.DotOpts{
		Verbose:    true,
		DrawCycles: true,
	}))

	if output == "" {
		c.Ui.Output(dotString)
		return 0
	}

	if !hasGraphViz() {
		c.Ui.Warn(color.New(color.FgYellow, color.Bold).Sprint(" WARNING ") +
			color.YellowString(" Graphviz isn't installed; writing raw Dot source to %s instead of an image.", output))
		if err := os.WriteFile(output, []byte(dotString), 0o644); err != nil {
			c.Ui.Error(fmt.Sprintf("%s writing %s: %s", ui.ERROR_PREFIX, output, color.RedString(err.Error())))
			return 1
		}
		return 0
	}

	ext := path.Ext(output)
	if ext == "" {
		c.Ui.Error(fmt.Sprintf("%s --output must have an extension Graphviz recognizes", ui.ERROR_PREFIX))
		return 1
	}
	cmd := exec.Command("dot", "-T"+ext[1:], "-o", output)
	cmd.Stdin = strings.NewReader(dotString)
	if err := cmd.Run(); err != nil {
		c.Ui.Error(fmt.Sprintf("%s generating %s: %s", ui.ERROR_PREFIX, output, color.RedString(err.Error())))
		return 1
	}
	c.Ui.Info(fmt.Sprintf("%s Generated task graph in %s", color.GreenString("✓"), ui.Bold(output)))
	return 0
}

func hasGraphViz() bool {
	return exec.Command("dot", "-v").Run() == nil
}
