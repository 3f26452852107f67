// pkg/config/config.go

// Package config loads the monitoring configuration. Values come from, in
// order of precedence: command line flags, CHECK_PROXMOX_* environment
// variables, the [proxmox] section of the INI file, and built-in defaults.
package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/squelch"
)

// DefaultPath is the shared monitoring configuration file
const DefaultPath = "/etc/monitoring.ini"

// Section holds this tool's keys in the INI file
const Section = "proxmox"

// EnvPrefix prefixes environment overrides, e.g. CHECK_PROXMOX_SQUELCH
const EnvPrefix = "CHECK_PROXMOX"

// Configuration keys
const (
	KeySquelch  = "squelch"
	KeyOldPvesh = "is_old_pvesh"
	KeyPvesh    = "pvesh"
	KeyAllNodes = "all_nodes"
	KeyDumpRoot = "dump_root"

	KeyAPIURL         = "api_url"
	KeyAPIUser        = "api_user"
	KeyAPIPassword    = "api_password"
	KeyAPITokenID     = "api_token_id"
	KeyAPITokenSecret = "api_token_secret"
	KeyValidateCerts  = "validate_certs"
)

var boolKeys = map[string]bool{KeyOldPvesh: true, KeyAllNodes: true, KeyValidateCerts: true}

// flagKeys maps configuration keys to the command line flags overriding them
var flagKeys = map[string]string{
	KeySquelch:  "squelch",
	KeyOldPvesh: "old-pvesh",
	KeyPvesh:    "pvesh",
	KeyAllNodes: "all-nodes",
	KeyDumpRoot: "dump-root",

	KeyAPIURL:         "url",
	KeyAPIUser:        "user",
	KeyAPIPassword:    "password",
	KeyAPITokenID:     "token-id",
	KeyAPITokenSecret: "token-secret",
	KeyValidateCerts:  "validate-certs",
}

// Config is the resolved configuration of a run
type Config struct {
	Squelch  string
	OldPvesh bool
	Pvesh    string
	AllNodes bool
	DumpRoot string

	// API is the REST connection of the inventory; pvesh is used when URL is empty
	API APIConfig

	// Source is the INI file that was read, empty when none existed
	Source string
}

// APIConfig holds the Proxmox REST API connection settings
type APIConfig struct {
	URL           string
	User          string
	Password      string
	TokenID       string
	TokenSecret   string
	ValidateCerts bool
}

// SquelchRules parses the configured squelch list
func (c *Config) SquelchRules() ([]squelch.Rule, error) {
	rules, err := squelch.Parse(c.Squelch)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s in [%s]", KeySquelch, Section)
	}
	return rules, nil
}

// NewViper returns a viper instance with defaults and environment lookup set up
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeySquelch, squelch.Default)
	v.SetDefault(KeyOldPvesh, false)
	v.SetDefault(KeyPvesh, "pvesh")
	v.SetDefault(KeyAllNodes, false)
	v.SetDefault(KeyDumpRoot, "")
	v.SetDefault(KeyValidateCerts, true)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds the flags that override configuration keys
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var result error
	for key, name := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "binding --%s", name))
		}
	}
	return result
}

// ReadINI reads the [proxmox] section of an INI file. Inline comments are
// not recognised so ';' can separate squelch restrictions.
func ReadINI(path string) (map[string]any, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:     true,
		SkipUnrecognizableLines: true,
	}, path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	values := make(map[string]any)
	section, err := file.GetSection(Section)
	if err != nil {
		return values, nil
	}

	var result error
	for _, key := range section.Keys() {
		name := strings.ToLower(key.Name())
		if boolKeys[name] {
			b, err := key.Bool()
			if err != nil {
				result = multierror.Append(result, errors.Wrapf(err, "%s in [%s]", name, Section))
				continue
			}
			values[name] = b
			continue
		}
		values[name] = key.String()
	}
	return values, result
}

// Load merges the INI file at path into v and resolves the configuration.
// A missing file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			values, err := ReadINI(path)
			if err != nil {
				return nil, err
			}
			if err := v.MergeConfigMap(values); err != nil {
				return nil, errors.Wrapf(err, "merging %s", path)
			}
			cfg.Source = path
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "checking %s", path)
		}
	}

	cfg.Squelch = v.GetString(KeySquelch)
	cfg.OldPvesh = v.GetBool(KeyOldPvesh)
	cfg.Pvesh = v.GetString(KeyPvesh)
	cfg.AllNodes = v.GetBool(KeyAllNodes)
	cfg.DumpRoot = v.GetString(KeyDumpRoot)
	cfg.API = APIConfig{
		URL:           v.GetString(KeyAPIURL),
		User:          v.GetString(KeyAPIUser),
		Password:      v.GetString(KeyAPIPassword),
		TokenID:       v.GetString(KeyAPITokenID),
		TokenSecret:   v.GetString(KeyAPITokenSecret),
		ValidateCerts: v.GetBool(KeyValidateCerts),
	}

	if _, err := cfg.SquelchRules(); err != nil {
		return nil, err
	}
	return cfg, nil
}
