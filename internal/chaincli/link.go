package chaincli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	survey "github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/gosimple/slug"
	"github.com/mitchellh/cli"
	homedir "github.com/mitchellh/go-homedir"

	"github.com/taskchain-go/taskchain/internal/taskchainconfig"
	"github.com/taskchain-go/taskchain/internal/ui"
)

// LinkCommand is an interactive scaffolding wizard that generates a
// starter config document and a per-directory .taskchain/config.json,
// the equivalent of the teacher's `turbo link` wizard narrowed from
// "link this directory to a hosted Project" to "scaffold a local chain".
type LinkCommand struct {
	Config *taskchainconfig.Config
	Ui     *cli.ColoredUi
}

func (c *LinkCommand) Synopsis() string { return "Scaffold a starter chain in this directory" }

func (c *LinkCommand) Help() string {
	return strings.TrimSpace(`
Usage: chain link

    Interactively scaffold a starter config document and a per-directory
    .taskchain/config.json in the current directory.
`)
}

func (c *LinkCommand) Run(args []string) int {
	c.Ui.Info(ui.Dim("TaskChain CLI"))

	currentDir, err := filepath.Abs(".")
	if err != nil {
		return c.logError(fmt.Errorf("could not resolve current directory: %w", err))
	}
	home, _ := homedir.Dir()
	displayDir := currentDir
	if home != "" {
		displayDir = strings.Replace(currentDir, home, "~", 1)
	}

	shouldSetup := true
	_ = survey.AskOne(&survey.Confirm{
		Default: true,
		Message: fmt.Sprintf("Set up %s?", ui.Bold(displayDir)),
	}, &shouldSetup, survey.WithValidator(survey.Required))
	if !shouldSetup {
		c.Ui.Info("Aborted. Nothing was set up.")
		return 1
	}

	defaultName := slug.Make(filepath.Base(currentDir))
	var chainName string
	_ = survey.AskOne(&survey.Input{
		Message: "Name for this chain?",
		Default: defaultName,
	}, &chainName, survey.WithValidator(survey.Required))

	var artifactRoot string
	_ = survey.AskOne(&survey.Input{
		Message: "Artifact root path?",
		Default: ".taskchain/artifacts",
	}, &artifactRoot, survey.WithValidator(survey.Required))

	configPath := chainName + ".yaml"
	if _, statErr := os.Stat(configPath); statErr == nil {
		c.Ui.Warn(fmt.Sprintf("%s %s already exists, leaving it untouched", ui.WARNING_PREFIX, configPath))
	} else {
		starter := fmt.Sprintf("tasks:\n  - # %s.TaskClass\n", chainName)
		if err := os.WriteFile(configPath, []byte(starter), 0o644); err != nil {
			return c.logError(fmt.Errorf("writing %s: %w", configPath, err))
		}
		c.Ui.Info(fmt.Sprintf("%s wrote %s", color.GreenString("✓"), configPath))
	}

	if err := taskchainconfig.WriteConfigFile(filepath.Join(currentDir, ".taskchain", "config.json"), &taskchainconfig.UserConfig{}); err != nil {
		return c.logError(fmt.Errorf("writing .taskchain/config.json: %w", err))
	}
	c.Ui.Info(fmt.Sprintf("%s wrote .taskchain/config.json", color.GreenString("✓")))
	c.Ui.Info(fmt.Sprintf("%s %s is ready. Run it with: chain run --config=%s --root=%s", color.GreenString("✓"), chainName, configPath, artifactRoot))
	return 0
}

func (c *LinkCommand) logError(err error) int {
	c.Ui.Error(fmt.Sprintf("%s %s", ui.ERROR_PREFIX, color.RedString(err.Error())))
	return 1
}
