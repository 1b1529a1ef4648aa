package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/daedaleanai/nap/cc"
	"github.com/daedaleanai/nap/log"
)

// ScrubberConfig is a scrubber command, split like a shell would split it.
type ScrubberConfig struct {
	Name    string `mapstructure:"name"`
	Command string `mapstructure:"command"`
}

// ToolchainConfig overrides the tools of a toolchain. Commands and flags are
// split like a shell would split them; env entries are KEY=VALUE.
type ToolchainConfig struct {
	Flavor        string           `mapstructure:"flavor"`
	Ar            string           `mapstructure:"ar"`
	ArFlags       string           `mapstructure:"arflags"`
	Ranlib        string           `mapstructure:"ranlib"`
	RanlibFlags   string           `mapstructure:"ranlibflags"`
	Contents      string           `mapstructure:"contents"`
	Scrubbers     []ScrubberConfig `mapstructure:"scrubbers"`
	Dsymutil      string           `mapstructure:"dsymutil"`
	DsymutilFlags string           `mapstructure:"dsymutilflags"`
	Env           []string         `mapstructure:"env"`
}

type Config struct {
	// Toolchain is the name of the default toolchain.
	Toolchain  string                     `mapstructure:"toolchain"`
	Jobs       int                        `mapstructure:"jobs"`
	Toolchains map[string]ToolchainConfig `mapstructure:"toolchains"`
}

var environment map[string]string
var config *Config

// ConfigFile, if set, is read instead of looking for config.yaml in the
// configuration directory.
var ConfigFile string

const configName = "config"
const envPrefix = "NAP"

func init() {
	environment = make(map[string]string)
	for _, v := range os.Environ() {
		key, value, found := strings.Cut(v, "=")
		if found {
			environment[key] = value
		}
	}
}

func getNapConfigDir() (string, error) {
	if napConfigDir, ok := environment["NAP_CONFIG_DIR"]; ok {
		return napConfigDir, nil
	}

	if xdgConfigHome, ok := environment["XDG_CONFIG_HOME"]; ok {
		return filepath.Join(xdgConfigHome, "nap"), nil
	}

	homeDir, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("Unable to locate the configuration directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "nap"), nil
}

func defaultToolchain() string {
	if runtime.GOOS == "darwin" {
		return "darwin"
	}
	return "gnu"
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetDefault("toolchain", defaultToolchain())
	v.SetDefault("jobs", runtime.NumCPU())
	return v
}

// Load reads the configuration. A missing configuration file is not an error:
// the built-in defaults are used instead.
func Load(configFile, configDir string) (Config, error) {
	v := newViper()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(configDir)
	}

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case errors.As(err, &notFound):
		log.Debug("No configuration file in `%s`. Using default configuration\n", configDir)
	case err != nil:
		return Config{}, fmt.Errorf("reading configuration: %w", err)
	default:
		log.Debug("Loaded configuration from `%s`\n", v.ConfigFileUsed())
	}

	config := Config{}
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	log.Debug("Running with configuration: %+v\n", config)
	return config, nil
}

// GetConfig returns the configuration of this invocation, loading it on first use.
func GetConfig() Config {
	if config == nil {
		configDir, err := getNapConfigDir()
		if err != nil && ConfigFile == "" {
			log.Debug("%s. Using default configuration\n", err)
		}
		loadedConfig, err := Load(ConfigFile, configDir)
		if err != nil {
			log.Fatal("%s\n", err)
		}
		config = &loadedConfig
	}

	return *config
}

func split(field, s string) ([]string, error) {
	words, err := shellquote.Split(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return words, nil
}

// scrubberCommand splits a scrubber command and looks its program up in PATH.
// Chained scrubbers run under a shell that sees none of our environment.
func scrubberCommand(s string) ([]string, error) {
	words, err := split("scrubbers", s)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("scrubbers: empty command")
	}
	if !strings.Contains(words[0], "/") {
		program, err := exec.LookPath(words[0])
		if err != nil {
			return nil, fmt.Errorf("scrubbers: %w", err)
		}
		if words[0], err = filepath.Abs(program); err != nil {
			return nil, err
		}
	}
	return words, nil
}

func parseEnv(entries []string) (map[string]string, error) {
	env := map[string]string{}
	for _, entry := range entries {
		key, value, found := strings.Cut(entry, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("env: %q is not of the form KEY=VALUE", entry)
		}
		env[key] = value
	}
	return env, nil
}

func mergeEnv(tool *cc.Tool, env map[string]string) {
	if tool == nil || len(env) == 0 {
		return
	}
	merged := map[string]string{}
	for k, v := range tool.Env {
		merged[k] = v
	}
	for k, v := range env {
		merged[k] = v
	}
	tool.Env = merged
}

func builtin(flavor cc.ArchiverFlavor) cc.Toolchain {
	for _, toolchain := range cc.BuiltinToolchains() {
		if toolchain.Archiver.Flavor == flavor {
			return toolchain
		}
	}
	return cc.Toolchain{Archiver: cc.ArchiverFor(flavor)}
}

// Toolchain resolves the configuration into a toolchain called name. Anything
// not configured comes from the built-in toolchain of the same flavor.
func (tc ToolchainConfig) Toolchain(name string) (cc.Toolchain, error) {
	flavor, err := cc.ParseArchiverFlavor(tc.Flavor)
	if tc.Flavor == "" {
		flavor, err = cc.Gnu, nil
	}
	if err != nil {
		return cc.Toolchain{}, err
	}

	toolchain := builtin(flavor)
	toolchain.Name = name

	words, err := split("ar", tc.Ar)
	if err != nil {
		return cc.Toolchain{}, err
	}
	toolchain.Archiver = cc.ArchiverFor(flavor, words...)
	if toolchain.Archiver.Flags, err = split("arflags", tc.ArFlags); err != nil {
		return cc.Toolchain{}, err
	}
	for _, scrubber := range tc.Scrubbers {
		command, err := scrubberCommand(scrubber.Command)
		if err != nil {
			return cc.Toolchain{}, err
		}
		toolchain.Archiver.Scrubbers = append(toolchain.Archiver.Scrubbers, cc.Scrubber{Name: scrubber.Name, Command: command})
	}

	if toolchain.Ranlib, err = overrideTool(toolchain.Ranlib, "ranlib", tc.Ranlib, tc.RanlibFlags); err != nil {
		return cc.Toolchain{}, err
	}
	if toolchain.Dsymutil, err = overrideTool(toolchain.Dsymutil, "dsymutil", tc.Dsymutil, tc.DsymutilFlags); err != nil {
		return cc.Toolchain{}, err
	}

	if toolchain.DefaultContents, err = cc.ParseArchiveContents(tc.Contents); err != nil {
		return cc.Toolchain{}, err
	}

	env, err := parseEnv(tc.Env)
	if err != nil {
		return cc.Toolchain{}, err
	}
	mergeEnv(&toolchain.Archiver.Tool, env)
	mergeEnv(toolchain.Ranlib, env)
	mergeEnv(toolchain.Dsymutil, env)
	return toolchain, nil
}

func overrideTool(tool *cc.Tool, field, command, flags string) (*cc.Tool, error) {
	if command == "" && flags == "" {
		return tool, nil
	}
	result := cc.Tool{}
	if tool != nil {
		result = *tool
	}
	if command != "" {
		words, err := split(field, command)
		if err != nil {
			return nil, err
		}
		result.Command = words
	}
	if flags != "" {
		words, err := split(field+"flags", flags)
		if err != nil {
			return nil, err
		}
		result.Flags = words
	}
	return &result, nil
}

// Registry returns the built-in toolchains together with the configured ones. A
// configured toolchain replaces the built-in one of the same name.
func (c Config) Registry() (*cc.Registry, error) {
	registry := cc.NewRegistry()
	for _, toolchain := range cc.BuiltinToolchains() {
		if _, overridden := c.Toolchains[toolchain.Name]; overridden {
			continue
		}
		if err := registry.Register(toolchain); err != nil {
			return nil, err
		}
	}
	for name, tc := range c.Toolchains {
		toolchain, err := tc.Toolchain(name)
		if err != nil {
			return nil, fmt.Errorf("toolchain %s: %w", name, err)
		}
		if err := registry.Register(toolchain); err != nil {
			return nil, err
		}
	}

	if c.Toolchain != "" {
		if err := registry.SetDefault(c.Toolchain); err != nil {
			return nil, fmt.Errorf("default toolchain: %w", err)
		}
	}
	return registry, nil
}
