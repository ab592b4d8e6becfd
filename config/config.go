package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws/arn"
	"github.com/mitchellh/mapstructure"
	"github.com/relloyd/starpipe/aws/s3"
	"github.com/relloyd/starpipe/constants"
	"github.com/relloyd/starpipe/helper"
	"github.com/relloyd/starpipe/rdbms/shared"
	"gopkg.in/ini.v1"
)

// FileNotFoundError denotes failing to find configuration file.
type FileNotFoundError struct {
	name string
}

// Error returns the formatted configuration error.
func (f FileNotFoundError) Error() string {
	return fmt.Sprintf("config file %q not found", f.name)
}

// KeyNotFoundError denotes a mandatory key that is missing from both the file and the environment.
type KeyNotFoundError struct {
	configFile string
	key        string
	err        error
}

func (k KeyNotFoundError) Error() string {
	if k.err != nil {
		return fmt.Sprintf("key %q not found in config file %q: %v", k.key, k.configFile, k.err)
	}
	return fmt.Sprintf("key %q not found in config file %q", k.key, k.configFile)
}

// Key returns the SECTION.KEY that was missing.
func (k KeyNotFoundError) Key() string {
	return k.key
}

// WarehouseConfig is the [DWH] section.
type WarehouseConfig struct {
	Endpoint string `mapstructure:"DB_ENDPOINT" errorTxt:"DWH.DB_ENDPOINT" mandatory:"yes"`
	DbName   string `mapstructure:"DWH_DB_NAME" errorTxt:"DWH.DWH_DB_NAME" mandatory:"yes"`
	User     string `mapstructure:"DWH_DB_USER" errorTxt:"DWH.DWH_DB_USER" mandatory:"yes"`
	Password string `mapstructure:"DWH_DB_PASSWORD" errorTxt:"DWH.DWH_DB_PASSWORD" mandatory:"yes"`
	Port     int    `mapstructure:"DWH_PORT" errorTxt:"DWH.DWH_PORT" mandatory:"yes"`
	SslMode  string `mapstructure:"DWH_SSL_MODE"`
}

// RoleConfig is the [IAM_ROLE] section.
type RoleConfig struct {
	Arn string `mapstructure:"ARN" errorTxt:"IAM_ROLE.ARN" mandatory:"yes"`
}

// S3Config is the [S3] section.
type S3Config struct {
	SongData    string `mapstructure:"SONG_DATA" errorTxt:"S3.SONG_DATA" mandatory:"yes"`
	LogData     string `mapstructure:"LOG_DATA" errorTxt:"S3.LOG_DATA" mandatory:"yes"`
	LogJsonPath string `mapstructure:"LOG_JSONPATH" errorTxt:"S3.LOG_JSONPATH" mandatory:"yes"`
	Region      string `mapstructure:"REGION"`
}

// Config is the complete pipeline configuration.
// It is built once by Load and passed by value so nothing downstream can change it.
type Config struct {
	Source    string          `mapstructure:"-"`
	Warehouse WarehouseConfig `mapstructure:"DWH"`
	Role      RoleConfig      `mapstructure:"IAM_ROLE"`
	S3        S3Config        `mapstructure:"S3"`
}

type sectionKeys struct {
	section  string
	keys     []string
	optional map[string]struct{}
}

// knownKeys lists every key read from the file or environment, in file order.
var knownKeys = []sectionKeys{
	{
		section:  constants.ConfigSectionWarehouse,
		keys:     []string{"DB_ENDPOINT", "DWH_DB_NAME", "DWH_DB_USER", "DWH_DB_PASSWORD", "DWH_PORT", "DWH_SSL_MODE"},
		optional: map[string]struct{}{"DWH_SSL_MODE": {}},
	},
	{
		section: constants.ConfigSectionRole,
		keys:    []string{"ARN"},
	},
	{
		section:  constants.ConfigSectionS3,
		keys:     []string{"SONG_DATA", "LOG_DATA", "LOG_JSONPATH", "REGION"},
		optional: map[string]struct{}{"REGION": {}},
	},
}

// Options controls where configuration is read from.
type Options struct {
	// FileName is the INI file to read. A leading ~ is expanded.
	FileName string
	// TwelveFactorMode makes the file optional so that every key can come from the environment.
	TwelveFactorMode bool
}

// Load reads the INI file named in opts, applies STARPIPE_<SECTION>_<KEY> environment overrides,
// fills defaults and validates the result.
func Load(opts Options) (Config, error) {
	fileName, err := expandPath(opts.FileName)
	if err != nil {
		return Config{}, err
	}
	if fileExists(fileName) {
		b, err := ioutil.ReadFile(fileName)
		if err != nil {
			return Config{}, fmt.Errorf("error reading config file %q: %w", fileName, err)
		}
		return LoadBytes(fileName, b)
	} else if opts.TwelveFactorMode {
		return build(ini.Empty(loadOptions), fileName)
	}
	return Config{}, FileNotFoundError{name: fileName}
}

// loadOptions keeps # and ; inside values, e.g. in passwords.
// Only whole-line comments are recognised.
var loadOptions = ini.LoadOptions{IgnoreInlineComment: true}

// LoadBytes parses INI content held in memory. name is used in error messages.
func LoadBytes(name string, b []byte) (Config, error) {
	f, err := ini.LoadSources(loadOptions, b)
	if err != nil {
		return Config{}, fmt.Errorf("error parsing config %q: %w", name, err)
	}
	return build(f, name)
}

func build(f *ini.File, source string) (Config, error) {
	raw, err := collect(f, source)
	if err != nil {
		return Config{}, err
	}
	c := Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &c,
	})
	if err != nil {
		return Config{}, err
	}
	if err = decoder.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("error decoding config %q: %w", source, err)
	}
	c.Source = source
	c.applyDefaults()
	if err = c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// collect builds a map of section => key => value from f with environment overrides applied.
// Section names are case-sensitive while key names are not.
func collect(f *ini.File, source string) (map[string]interface{}, error) {
	raw := make(map[string]interface{})
	for _, sk := range knownKeys {
		fileValues := make(map[string]string)
		if sec, err := f.GetSection(sk.section); err == nil {
			for k, v := range sec.KeysHash() {
				fileValues[strings.ToUpper(k)] = strings.TrimSpace(v)
			}
		}
		values := make(map[string]interface{})
		for _, key := range sk.keys {
			v, inFile := fileValues[key]
			envValue := ""
			if helper.ReadValueFromEnv(helper.GetConfigKeyEnvVarName(sk.section, key), &envValue) == nil {
				v = envValue // the environment wins.
			} else if !inFile {
				if _, isOptional := sk.optional[key]; !isOptional {
					return nil, KeyNotFoundError{configFile: source, key: fmt.Sprintf("%v.%v", sk.section, key)}
				}
				continue
			}
			values[key] = v
		}
		raw[sk.section] = values
	}
	return raw, nil
}

func (c *Config) applyDefaults() {
	if c.S3.Region == "" {
		c.S3.Region = constants.DefaultS3Region
	}
	if c.Warehouse.SslMode == "" {
		c.Warehouse.SslMode = constants.DefaultSslMode
	}
}

// Validate checks that mandatory values are populated and well formed.
func (c Config) Validate() error {
	if err := helper.ValidateStructIsPopulated(c); err != nil {
		return fmt.Errorf("invalid config %q: %w", c.Source, err)
	}
	if c.Warehouse.Port < 1 || c.Warehouse.Port > 65535 {
		return fmt.Errorf("invalid config %q: DWH.DWH_PORT %v is out of range 1-65535", c.Source, c.Warehouse.Port)
	}
	a, err := arn.Parse(c.Role.Arn)
	if err != nil {
		return fmt.Errorf("invalid config %q: IAM_ROLE.ARN: %w", c.Source, err)
	}
	if a.Service != "iam" || !strings.HasPrefix(a.Resource, "role/") {
		return fmt.Errorf("invalid config %q: IAM_ROLE.ARN %q is not an IAM role", c.Source, c.Role.Arn)
	}
	for _, kv := range [][2]string{
		{"S3.SONG_DATA", c.S3.SongData},
		{"S3.LOG_DATA", c.S3.LogData},
		{"S3.LOG_JSONPATH", c.S3.LogJsonPath},
	} {
		if _, err := s3.ParseURI(kv[1]); err != nil {
			return fmt.Errorf("invalid config %q: %v: %w", c.Source, kv[0], err)
		}
	}
	return nil
}

// Connection returns the warehouse connection details.
func (c Config) Connection() shared.ConnectionDetails {
	return shared.ConnectionDetails{
		Type:     constants.ConnectionTypeRedshift,
		Host:     c.Warehouse.Endpoint,
		Port:     c.Warehouse.Port,
		DbName:   c.Warehouse.DbName,
		User:     c.Warehouse.User,
		Password: c.Warehouse.Password,
		SslMode:  c.Warehouse.SslMode,
	}
}

// Preflight returns the S3 locations that COPY will read.
func (c Config) Preflight() s3.PreflightConfig {
	return s3.PreflightConfig{
		SongData:    c.S3.SongData,
		LogData:     c.S3.LogData,
		LogJsonPath: c.S3.LogJsonPath,
		Region:      c.S3.Region,
	}
}

// String prints the configuration with the password redacted.
func (c Config) String() string {
	x := []string{
		fmt.Sprintf("source = %v", c.Source),
		fmt.Sprintf("connection = %v", c.Connection()),
		fmt.Sprintf("role = %v", c.Role.Arn),
		fmt.Sprintf("song data = %v", c.S3.SongData),
		fmt.Sprintf("log data = %v", c.S3.LogData),
		fmt.Sprintf("log jsonpath = %v", c.S3.LogJsonPath),
		fmt.Sprintf("region = %v", c.S3.Region),
	}
	return strings.Join(x, "; ")
}

// twelveFactorModeSet reports whether the environment asks for env-only configuration.
func twelveFactorModeSet() bool {
	_, ok := os.LookupEnv(constants.EnvVarPrefix + "_12FACTOR_MODE")
	return ok
}

// LoadDefault loads fileName, honouring 12-factor mode from the environment.
func LoadDefault(fileName string) (Config, error) {
	return Load(Options{FileName: fileName, TwelveFactorMode: twelveFactorModeSet()})
}
