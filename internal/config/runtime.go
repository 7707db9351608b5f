package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/demosdemon/skuwatch/pkg/secrets"
	"github.com/demosdemon/skuwatch/pkg/walmart"
)

const (
	DefaultRuntimeFile   = "skuwatch.yaml"
	DefaultSnapshotsDir  = "snapshots"
	DefaultRemote        = "origin"
	DefaultCommitMessage = "chore: update walmart snapshots (local)"
	DefaultAWSRegion     = "us-west-2"
)

type FailurePolicy string

const (
	// Continue logs a failed store and moves on to the next one.
	Continue FailurePolicy = "continue"
	// Abort stops the run at the first failed store.
	Abort FailurePolicy = "abort"
)

type Engine string

const (
	EngineBrowser Engine = "browser"
	EngineHTTP    Engine = "http"
)

type Driver string

const (
	DriverGoGit Driver = "go-git"
	DriverCLI   Driver = "cli"
)

type Runtime struct {
	StoresFile    string        `yaml:"stores_file"`
	SnapshotsDir  string        `yaml:"snapshots_dir"`
	FailurePolicy FailurePolicy `yaml:"failure_policy"`
	DryRun        bool          `yaml:"dry_run"`
	Fetch         Fetch         `yaml:"fetch"`
	Publish       Publish       `yaml:"publish"`
}

type Fetch struct {
	Engine       Engine               `yaml:"engine"`
	BaseURL      string               `yaml:"base_url"`
	Timeout      time.Duration        `yaml:"timeout"`
	UserAgent    string               `yaml:"user_agent"`
	Headless     *bool                `yaml:"headless"`
	WaitSelector string               `yaml:"wait_selector"`
	ExecPath     string               `yaml:"exec_path"`
	Query        walmart.StoreOptions `yaml:"query"`
}

type Publish struct {
	Repository string `yaml:"repository"`
	Remote     string `yaml:"remote"`
	Branch     string `yaml:"branch"`
	Message    string `yaml:"message"`
	Driver     Driver `yaml:"driver"`
	Author     Author `yaml:"author"`
	Auth       Auth   `yaml:"auth"`
	AWSRegion  string `yaml:"aws_region"`
}

type Author struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

type Auth struct {
	Username secrets.Secret `yaml:"username"`
	Password secrets.Secret `yaml:"password"`
}

// LoadRuntime reads name and then name's ".local" sibling
// (skuwatch.yaml, skuwatch.local.yaml), the latter overriding the former.
// Neither file has to exist.
func LoadRuntime(name string) (*Runtime, error) {
	r := new(Runtime)

	if err := readRuntimeFile(name, r); err != nil {
		return nil, err
	}

	local := localName(name)
	override := new(Runtime)
	if err := readRuntimeFile(local, override); err != nil {
		return nil, err
	}
	if err := mergo.Merge(r, override, mergo.WithOverride); err != nil {
		return nil, Error{Step: "merging local settings", File: local, Index: -1, Err: err}
	}

	r.ApplyDefaults()
	return r, nil
}

func readRuntimeFile(name string, r *Runtime) error {
	if name == "" {
		return nil
	}

	body, err := os.ReadFile(name)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return Error{Step: "reading settings", File: name, Index: -1, Err: err}
	}

	if err := yaml.Unmarshal(body, r); err != nil {
		return Error{Step: "parsing settings", File: name, Index: -1, Err: err}
	}
	return nil
}

func localName(name string) string {
	if name == "" {
		return ""
	}
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

func (r *Runtime) ApplyDefaults() {
	if r.StoresFile == "" {
		r.StoresFile = DefaultStoresFile
	}
	if r.SnapshotsDir == "" {
		r.SnapshotsDir = DefaultSnapshotsDir
	}
	if r.FailurePolicy == "" {
		r.FailurePolicy = Continue
	}

	if r.Fetch.Engine == "" {
		r.Fetch.Engine = EngineBrowser
	}
	if r.Fetch.BaseURL == "" {
		r.Fetch.BaseURL = walmart.DefaultBaseURL
	}
	if r.Fetch.Timeout == 0 {
		r.Fetch.Timeout = walmart.DefaultHTTPTimeout
	}
	if r.Fetch.UserAgent == "" {
		r.Fetch.UserAgent = walmart.DefaultUserAgent
	}
	if r.Fetch.Headless == nil {
		headless := walmart.DefaultHeadless
		r.Fetch.Headless = &headless
	}
	if r.Fetch.WaitSelector == "" {
		r.Fetch.WaitSelector = walmart.DefaultWaitSelector
	}

	if r.Publish.Repository == "" {
		r.Publish.Repository = "."
	}
	if r.Publish.Remote == "" {
		r.Publish.Remote = DefaultRemote
	}
	if r.Publish.Message == "" {
		r.Publish.Message = DefaultCommitMessage
	}
	if r.Publish.Driver == "" {
		r.Publish.Driver = DriverGoGit
	}
	if r.Publish.AWSRegion == "" {
		r.Publish.AWSRegion = DefaultAWSRegion
	}
}

// Validate checks enumerations and values that cannot be defaulted.
func (r *Runtime) Validate() error {
	err := func() error {
		switch r.FailurePolicy {
		case Continue, Abort:
		default:
			return fmt.Errorf("failure_policy must be %q or %q, got %q", Continue, Abort, r.FailurePolicy)
		}

		switch r.Fetch.Engine {
		case EngineBrowser, EngineHTTP:
		default:
			return fmt.Errorf("fetch.engine must be %q or %q, got %q", EngineBrowser, EngineHTTP, r.Fetch.Engine)
		}

		if r.Fetch.Timeout < 0 {
			return fmt.Errorf("fetch.timeout must be positive, got %s", r.Fetch.Timeout)
		}

		switch r.Publish.Driver {
		case DriverGoGit, DriverCLI:
		default:
			return fmt.Errorf("publish.driver must be %q or %q, got %q", DriverGoGit, DriverCLI, r.Publish.Driver)
		}
		return nil
	}()
	if err != nil {
		return Error{Step: "validating settings", Index: -1, Err: err}
	}
	return nil
}

// ClientOptions translates the fetch settings into walmart client options.
func (r *Runtime) ClientOptions() []walmart.Option {
	opts := []walmart.Option{
		walmart.WithBaseURL(r.Fetch.BaseURL),
		walmart.WithHTTPTimeout(r.Fetch.Timeout),
		walmart.WithUserAgent(r.Fetch.UserAgent),
		walmart.WithWaitSelector(r.Fetch.WaitSelector),
		walmart.WithStoreOptions(r.Fetch.Query),
	}
	if r.Fetch.Headless != nil {
		opts = append(opts, walmart.WithHeadless(*r.Fetch.Headless))
	}
	if r.Fetch.ExecPath != "" {
		opts = append(opts, walmart.WithExecPath(r.Fetch.ExecPath))
	}
	return opts
}
