package repo

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	rootPathEnvVar = "UPGRADER_PATH"

	envPrefix = "UPGRADER"

	cfgFileName = "upgrader.toml"

	defaultRepoRoot = "~/.upgrader"

	LogsDirName = "logs"

	ChainDataDirName = "chaindata"
)

type Repo struct {
	Config *Config
}

// Exist check if the file with the given path exits.
func Exist(path string) bool {
	fi, err := os.Lstat(path)
	if fi != nil || (err != nil && !os.IsNotExist(err)) {
		return true
	}

	return false
}

// Load opens the upgrader repo, writing the default config on first use, and
// rejects a config the upgrade could not run with.
func Load(repoRoot string) (*Repo, error) {
	rootPath, err := LoadRepoRootFromEnv(repoRoot)
	if err != nil {
		return nil, err
	}
	r := &Repo{Config: DefaultConfig(rootPath)}

	if !Exist(r.ConfigPath()) {
		if err := os.MkdirAll(rootPath, 0755); err != nil {
			return nil, errors.Wrap(err, "failed to build default config")
		}
		if err := writeConfigWithEnv(r.ConfigPath(), r.Config); err != nil {
			return nil, errors.Wrap(err, "failed to build default config")
		}
	} else {
		if err := CheckWritable(rootPath); err != nil {
			return nil, err
		}
		if err := readConfigFromFile(r.ConfigPath(), r.Config); err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", r.ConfigPath())
		}
	}

	if err := r.Config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid %s", r.ConfigPath())
	}
	return r, nil
}

func (r *Repo) ConfigPath() string {
	return filepath.Join(r.Config.RepoRoot, cfgFileName)
}

// ChainDataPath is where the ledger journals its blocks.
func (r *Repo) ChainDataPath() string {
	return filepath.Join(r.Config.RepoRoot, ChainDataDirName)
}

func (r *Repo) LogsPath() string {
	return filepath.Join(r.Config.RepoRoot, LogsDirName)
}

// Flush writes the config back to the repo with environment overrides applied.
func (r *Repo) Flush() error {
	if err := writeConfigWithEnv(r.ConfigPath(), r.Config); err != nil {
		return errors.Wrap(err, "failed to write config")
	}

	return nil
}

func writeConfigWithEnv(cfgPath string, config *Config) error {
	if err := writeConfig(cfgPath, config); err != nil {
		return err
	}
	// viper only sees env overrides for keys present in a config file
	if err := readConfigFromFile(cfgPath, config); err != nil {
		return errors.Wrap(err, "failed to apply env overrides")
	}
	return writeConfig(cfgPath, config)
}

func writeConfig(cfgPath string, config *Config) error {
	raw, err := MarshalConfig(config)
	if err != nil {
		return err
	}
	return os.WriteFile(cfgPath, []byte(raw), 0644)
}

func MarshalConfig(config any) (string, error) {
	buf := bytes.NewBuffer([]byte{})
	e := toml.NewEncoder(buf)
	e.SetIndentTables(true)
	e.SetArraysMultiline(true)
	if err := e.Encode(config); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// LoadRepoRootFromEnv resolves the repo root: the explicit path, then
// UPGRADER_PATH, then ~/.upgrader.
func LoadRepoRootFromEnv(repoRoot string) (string, error) {
	if repoRoot != "" {
		return repoRoot, nil
	}
	if repoRoot = os.Getenv(rootPathEnvVar); repoRoot != "" {
		return repoRoot, nil
	}
	return homedir.Expand(defaultRepoRoot)
}

// readConfigFromFile decodes cfgFilePath into config; UPGRADER_<SECTION>_<KEY>
// variables take precedence over the file.
func readConfigFromFile(cfgFilePath string, config *Config) error {
	vp := viper.New()
	vp.SetConfigFile(cfgFilePath)
	vp.SetConfigType("toml")
	vp.SetEnvPrefix(envPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	if err := vp.ReadInConfig(); err != nil {
		return err
	}
	return vp.Unmarshal(config)
}

// CheckWritable makes sure the upgrader can keep its chain data and logs under dir,
// creating dir when missing.
func CheckWritable(dir string) error {
	_, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return os.Mkdir(dir, 0775)
	case os.IsPermission(err):
		return errors.Errorf("cannot access repo root %s, incorrect permissions", dir)
	case err != nil:
		return err
	}

	f, err := os.CreateTemp(dir, ".writable-")
	if err != nil {
		if os.IsPermission(err) {
			return errors.Errorf("repo root %s is not writeable by the current user", dir)
		}
		return errors.Wrapf(err, "check writability of repo root %s", dir)
	}
	_ = f.Close()
	return os.Remove(f.Name())
}
