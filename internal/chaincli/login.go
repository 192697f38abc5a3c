package chaincli

import (
	"fmt"
	"strings"

	survey "github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/mitchellh/cli"

	"github.com/taskchain-go/taskchain/internal/remotemirror"
	"github.com/taskchain-go/taskchain/internal/taskchainconfig"
	"github.com/taskchain-go/taskchain/internal/ui"
)

// LoginCommand persists a remote-mirror bearer token to the user-global
// config file. The teacher's LoginCommand polls a hosted device-token
// endpoint (internal/login/login.go); internal/remotemirror exposes no
// such endpoint (it is a content-addressed artifact store, not an
// account service — see DESIGN.md), so this prompts for an
// already-issued token directly instead of polling for one.
type LoginCommand struct {
	Config *taskchainconfig.Config
	Ui     *cli.ColoredUi
}

func (c *LoginCommand) Synopsis() string { return "Save remote-mirror credentials" }

func (c *LoginCommand) Help() string {
	return strings.TrimSpace(`
Usage: chain login --remote=<url> [--token=<token>]

    Save remote-mirror credentials to the user-global config file. If
    --token is omitted, prompts for it interactively.
`)
}

func (c *LoginCommand) Run(args []string) int {
	var remoteURL, token string
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--remote="):
			remoteURL = arg[len("--remote="):]
		case strings.HasPrefix(arg, "--token="):
			token = arg[len("--token="):]
		}
	}
	if remoteURL == "" {
		remoteURL = c.Config.RemoteURL
	}
	if remoteURL == "" {
		c.Ui.Error(fmt.Sprintf("%s --remote is required", ui.ERROR_PREFIX))
		return 1
	}

	c.Ui.Info(ui.Dim("TaskChain CLI"))
	c.Ui.Info(ui.Dim(remoteURL))

	if token == "" {
		_ = survey.AskOne(&survey.Password{
			Message: "Remote-mirror access token:",
		}, &token, survey.WithValidator(survey.Required))
	}

	client := remotemirror.NewClient(remoteURL)
	client.SetToken(token)

	if err := taskchainconfig.WriteUserConfigFile(&taskchainconfig.UserConfig{Token: token, RemoteURL: remoteURL}); err != nil {
		c.Ui.Error(fmt.Sprintf("%s saving credentials: %s", ui.ERROR_PREFIX, color.RedString(err.Error())))
		return 1
	}

	c.Ui.Info(fmt.Sprintf("%s credentials saved for %s", color.GreenString("✓"), client.BaseURL()))
	return 0
}

// LogoutCommand clears saved remote-mirror credentials.
type LogoutCommand struct {
	Config *taskchainconfig.Config
	Ui     *cli.ColoredUi
}

func (c *LogoutCommand) Synopsis() string { return "Clear saved remote-mirror credentials" }

func (c *LogoutCommand) Help() string {
	return strings.TrimSpace(`
Usage: chain logout

    Clear the remote-mirror credentials saved by "chain login".
`)
}

func (c *LogoutCommand) Run(args []string) int {
	if err := taskchainconfig.DeleteUserConfigFile(); err != nil {
		c.Ui.Error(fmt.Sprintf("%s %s", ui.ERROR_PREFIX, color.RedString(err.Error())))
		return 1
	}
	c.Ui.Info(fmt.Sprintf("%s logged out", color.GreenString("✓")))
	return 0
}
