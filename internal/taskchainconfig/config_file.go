package taskchainconfig

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	homedir "github.com/mitchellh/go-homedir"
)

// UserConfig holds the values a logged-in user persists between
// invocations: remote-mirror credentials, not anything project-local
// (spec §9 enrichment). Mirrors the teacher's TurborepoConfig.
type UserConfig struct {
	Token     string `json:"token,omitempty"`
	RemoteURL string `json:"remoteUrl,omitempty" envconfig:"remote_url"`
}

func defaultUserConfig() *UserConfig {
	return &UserConfig{}
}

// WriteConfigFile writes config as JSON to path, creating its parent
// directory if needed.
func WriteConfigFile(path string, config *UserConfig) error {
	b, err := json.Marshal(config)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return ioutil.WriteFile(path, b, 0o600)
}

// ReadConfigFile reads and decodes the JSON config document at path.
// A missing file returns zero-value defaults rather than an error, so
// callers can always layer env/flag overrides on top.
func ReadConfigFile(path string) (*UserConfig, error) {
	config := defaultUserConfig()
	b, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return config, err
	}
	if err := json.Unmarshal(b, config); err != nil {
		return config, err
	}
	return config, nil
}

// userConfigPath locates the user-global config file via XDG first,
// falling back to a dotfile directly under the user's home directory
// when XDG resolution fails (e.g. no $HOME on some CI images), the
// same two-tier location strategy the teacher's login command falls
// back to.
func userConfigPath() (string, error) {
	if path, err := xdg.ConfigFile(filepath.Join("taskchain", "config.json")); err == nil {
		return path, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".taskchain", "config.json"), nil
}

// ReadUserConfigFile reads the user-global config file.
func ReadUserConfigFile() (*UserConfig, error) {
	path, err := userConfigPath()
	if err != nil {
		return defaultUserConfig(), err
	}
	return ReadConfigFile(path)
}

// WriteUserConfigFile writes the user-global config file, used by
// `chain login` to persist remote-mirror credentials.
func WriteUserConfigFile(config *UserConfig) error {
	path, err := userConfigPath()
	if err != nil {
		return err
	}
	return WriteConfigFile(path, config)
}

// DeleteUserConfigFile clears saved credentials, used by `chain
// logout`.
func DeleteUserConfigFile() error {
	return WriteUserConfigFile(defaultUserConfig())
}

// repoConfigPath returns the per-directory config path relative to
// cwd: .taskchain/config.json, the project-local tier between the
// user-global file and environment/flag overrides.
func repoConfigPath(cwd string) string {
	return filepath.Join(cwd, ".taskchain", "config.json")
}
