package datahandler

import (
	"io/ioutil"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// RunInfo is the sidecar YAML document written alongside every
// persisted artifact (spec §4.6): task identity, owning config,
// parameter values, input fingerprints, timing, and the invoking user.
type RunInfo struct {
	TaskClass    string `yaml:"task_class"`
	TaskFullName string `yaml:"task_full_name"`

	ConfigName      string `yaml:"config_name"`
	ConfigNamespace string `yaml:"config_namespace"`

	Parameters map[string]interface{} `yaml:"parameters"`

	InputFingerprints map[string]string `yaml:"input_fingerprints"`

	Started time.Time `yaml:"started"`
	Ended   time.Time `yaml:"ended"`
	Elapsed string    `yaml:"elapsed"`

	User string `yaml:"user"`

	// Records holds any user-appended entries (spec §4.6: "any
	// user-appended records").
	Records []interface{} `yaml:"records,omitempty"`
}

// WriteRunInfo marshals info as YAML to path, following the teacher's
// run.go pattern of writing a sidecar document next to the artifact it
// describes.
func WriteRunInfo(path string, info *RunInfo) error {
	b, err := yaml.Marshal(info)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, b, 0o644)
}

func ReadRunInfo(path string) (*RunInfo, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info RunInfo
	if err := yaml.Unmarshal(b, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// CurrentUser resolves the invoking user for RunInfo.User from the USER
// environment variable, then USERNAME, and returns "unknown" when
// neither is set. It does not consult os/user.
func CurrentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	if u := os.Getenv("USERNAME"); u != "" {
		return u
	}
	return "unknown"
}
