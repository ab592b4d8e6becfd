package helper

import (
	"fmt"
	"os"
	"strings"

	"github.com/relloyd/starpipe/constants"
)

// ReadValueFromEnv will read the env var called name and populate the supplied val.
// If the env var is not set then return an error and leave val untouched.
func ReadValueFromEnv(name string, val *string) error {
	v := os.Getenv(name)
	if v != "" { // if the environment variable was set...
		*val = v // update the callers value
		return nil
	}
	return fmt.Errorf("value for environment variable %v not found", name)
}

// ReadValueFromEnvWithDefault will read the value of name from the environment into v.
// If it's not set then it will apply the supplied defaultValue and return v.
func ReadValueFromEnvWithDefault(name string, defaultValue string) (v string) {
	_ = ReadValueFromEnv(name, &v)
	if v == "" && defaultValue != "" { // if the environment variable is not set and we have been given a default value...
		v = defaultValue
	}
	return
}

// GetConfigKeyEnvVarName returns the environment variable that overrides an INI key,
// e.g. section DWH and key DWH_PORT become STARPIPE_DWH_DWH_PORT.
func GetConfigKeyEnvVarName(section string, key string) string {
	s := strings.ToUpper(strings.TrimSpace(section))
	k := strings.ToUpper(strings.TrimSpace(key))
	return fmt.Sprintf("%v_%v_%v", constants.EnvVarPrefix, s, k)
}

// FlagNameToEnvVar converts a CLI flag name like log-level into STARPIPE_LOG_LEVEL.
func FlagNameToEnvVar(flagName string) string {
	n := strings.ToUpper(strings.Replace(strings.TrimSpace(flagName), "-", "_", -1))
	return fmt.Sprintf("%v_%v", constants.EnvVarPrefix, n)
}
