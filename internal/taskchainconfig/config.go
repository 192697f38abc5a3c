// Package taskchainconfig builds the CLI-level Config every
// cmd/taskchain subcommand runs against: artifact root, concurrency
// defaults, remote-mirror credentials, and log level, resolved with
// the teacher's flags > env > per-directory file > user-global file
// precedence (internal/config.ParseAndValidate).
package taskchainconfig

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/kelseyhightower/envconfig"
	"github.com/mattn/go-isatty"

	"github.com/taskchain-go/taskchain/internal/remotemirror"
)

// EnvLogLevel is the environment variable carrying the log level,
// mirroring the teacher's TURBO_LOG_LEVEL.
const EnvLogLevel = "TASKCHAIN_LOG_LEVEL"

// IsCI reports whether stdout isn't a terminal or $CI is set.
func IsCI() bool {
	return !isatty.IsTerminal(os.Stdout.Fd()) || os.Getenv("CI") != ""
}

// Config is the fully-resolved configuration a CLI command runs
// against.
type Config struct {
	Logger hclog.Logger

	Cwd              string
	ArtifactRootPath string
	Concurrency      int64

	Token     string
	RemoteURL string
	Remote    *remotemirror.Client
}

// ParseAndValidate mirrors the teacher's ParseAndValidate: pop the
// subcommand, special-case help/version, then layer flags over
// environment over the per-directory config file over the
// user-global config file.
func ParseAndValidate(args []string, appName string) (*Config, error) {
	if len(args) == 0 {
		args = append(args, "--help")
	}

	cmd, inputFlags := args[0], args[1:]
	if len(inputFlags) == 0 && isHelpOrVersion(cmd) {
		return nil, nil
	}
	if len(inputFlags) == 1 && isHelp(inputFlags[0]) {
		return nil, nil
	}

	cwd, err := selectCwd(args)
	if err != nil {
		return nil, fmt.Errorf("invalid working directory: %w", err)
	}

	userConfig, _ := ReadUserConfigFile()
	partialConfig, _ := ReadConfigFile(repoConfigPath(cwd))
	if partialConfig.Token == "" {
		partialConfig.Token = userConfig.Token
	}
	if partialConfig.RemoteURL == "" {
		partialConfig.RemoteURL = userConfig.RemoteURL
	}

	if err := envconfig.Process("TASKCHAIN", partialConfig); err != nil {
		return nil, fmt.Errorf("invalid environment variable: %w", err)
	}

	artifactRoot := ".taskchain/artifacts"
	concurrency := int64(runtime.NumCPU())

	level := hclog.NoLevel
	if v := os.Getenv(EnvLogLevel); v != "" {
		level = hclog.LevelFromString(v)
		if level == hclog.NoLevel {
			return nil, fmt.Errorf("%s value %q is not a valid log level", EnvLogLevel, v)
		}
	}

	for _, arg := range args {
		if len(arg) == 0 || arg[0] != '-' {
			continue
		}
		switch {
		case arg == "-v":
			if level == hclog.NoLevel || level > hclog.Info {
				level = hclog.Info
			}
		case arg == "-vv":
			if level == hclog.NoLevel || level > hclog.Debug {
				level = hclog.Debug
			}
		case arg == "-vvv":
			if level == hclog.NoLevel || level > hclog.Trace {
				level = hclog.Trace
			}
		case strings.HasPrefix(arg, "--root="):
			artifactRoot = arg[len("--root="):]
		case strings.HasPrefix(arg, "--remote="):
			partialConfig.RemoteURL = arg[len("--remote="):]
		case strings.HasPrefix(arg, "--token="):
			partialConfig.Token = arg[len("--token="):]
		case strings.HasPrefix(arg, "--concurrency="):
			n, err := strconv.ParseInt(arg[len("--concurrency="):], 10, 64)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("--concurrency must be a positive integer")
			}
			concurrency = n
		}
	}

	var output io.Writer = ioutil.Discard
	color := hclog.ColorOff
	if level != hclog.NoLevel {
		output = os.Stderr
		color = hclog.AutoColor
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   appName,
		Level:  level,
		Color:  color,
		Output: output,
	})

	var remote *remotemirror.Client
	if partialConfig.RemoteURL != "" {
		remote = remotemirror.NewClient(partialConfig.RemoteURL)
		remote.SetToken(partialConfig.Token)
	}

	return &Config{
		Logger:           logger,
		Cwd:              cwd,
		ArtifactRootPath: artifactRoot,
		Concurrency:      concurrency,
		Token:            partialConfig.Token,
		RemoteURL:        partialConfig.RemoteURL,
		Remote:           remote,
	}, nil
}

func isHelpOrVersion(cmd string) bool {
	switch cmd {
	case "help", "--help", "-help", "version", "--version", "-version":
		return true
	default:
		return false
	}
}

func isHelp(arg string) bool {
	return arg == "help" || arg == "--help" || arg == "-help"
}

// selectCwd returns the OS working directory, overridden by a
// --cwd= argument if present.
func selectCwd(args []string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for _, arg := range args {
		if arg == "--" {
			break
		}
		if strings.HasPrefix(arg, "--cwd=") {
			if v := arg[len("--cwd="):]; v != "" {
				cwd = v
			}
		}
	}
	return cwd, nil
}
