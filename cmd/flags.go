package cmd

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/relloyd/starpipe/helper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type cliFlag struct {
	name      string // name of flag
	val       string // default value
	shortHand string // single character name for the flag
	desc      string // description of the flag; the long text
}

type cliFlags map[string]cliFlag

var switches = cliFlags{
	"mock": cliFlag{name: "mock", shortHand: "m", desc: "mock switch for testing"},
	"log-level": cliFlag{name: "log-level", shortHand: "l",
		desc: "Log level: \"error | warn | info | debug | trace\" where step progress is \n" +
			"output at \"info\""},
	"dry-run": cliFlag{name: "dry-run", shortHand: "d",
		desc: "Print the SQL statements without connecting to the warehouse"},
	"steps": cliFlag{name: "steps", shortHand: "s",
		desc: "CSV of step names or phases (load, transform, create, drop) to run from the plan, \n" +
			"e.g. \"users,songs\" to rebuild two tables. Leave blank to run every step"},
	"preflight": cliFlag{name: "preflight", shortHand: "P",
		desc: "Check that the configured S3 prefixes contain objects and that the JSONPaths file \n" +
			"is valid before loading (uses the default AWS credential chain)"},
	"sql-output": cliFlag{name: "output", shortHand: "o",
		desc: "Specify \"sql\", \"yaml\" or \"json\" to choose how the plan is printed"},
	"verify-output": cliFlag{name: "output", shortHand: "o",
		desc: "Specify \"text\", \"yaml\" or \"json\" to choose how results are printed"},
	"print-header": cliFlag{name: "print-header", shortHand: "x",
		desc: "Print a header for SQL query results"},
	"port": cliFlag{name: "port", shortHand: "p",
		desc: "Port to listen on"},
}

// addFlag add a flag to cobra.Command c, based on the type of targetVar (which must be a pointer).
// The name of the flag is looked up in map, cliFlags.
// When running in twelveFactorMode, the targetVar is populated using the value of environment variable for the supplied
// name, or if not set then the supplied default value is used.
// When NOT running in twelveFactorMode, the supplied defaultValue is applied.
// The flag is marked as required in Cobra based on the value of required.
// Supply a value for desc2 to append to the existing description found in map cliFlags.
func (f *cliFlags) addFlag(c *cobra.Command, targetVar interface{}, name string, defaultValue string, required bool, desc2 string) {
	v := reflect.ValueOf(targetVar)
	if v.Kind() != reflect.Ptr {
		fmt.Println("error adding flag: targetVar must be a pointer")
		os.Exit(1)
	}
	sw := f.getCliFlag(name, defaultValue)
	desc := sw.desc + desc2
	// Apply the flag.
	switch p := targetVar.(type) {
	case *string:
		if twelveFactorMode {
			*p = sw.val
		} else {
			c.Flags().StringVarP(p, sw.name, sw.shortHand, sw.val, desc)
		}
	case *bool:
		if twelveFactorMode {
			*p = helper.GetTrueFalseStringAsBool(strings.ToLower(sw.val))
		} else {
			defaultBool := strings.ToLower(sw.val) == "true"
			c.Flags().BoolVarP(p, sw.name, sw.shortHand, defaultBool, desc)
		}
	case *int:
		defaultInt, err := strconv.Atoi(sw.val)
		if err != nil {
			fmt.Printf("the value for flag %q must be an integer: %v\n", sw.name, err)
			os.Exit(1)
		}
		if twelveFactorMode {
			*p = defaultInt
		} else {
			c.Flags().IntVarP(p, sw.name, sw.shortHand, defaultInt, desc)
		}
	case *[]string:
		defaultSlice := helper.CsvToStringSliceTrimSpaces(sw.val)
		if twelveFactorMode {
			*p = defaultSlice
		} else {
			c.Flags().StringSliceVarP(p, sw.name, sw.shortHand, defaultSlice, desc)
		}
	default:
		panic("Error: unhandled CLI flag target value type")
	}
	// Optionally mark the flag as mandatory.
	if required && !twelveFactorMode { // if the flag is required...
		_ = c.MarkFlagRequired(sw.name)
	}
}

// getCliFlag fetches the value of name from the environment, when running in twelveFactorMode.
// If a value cannot be found then use the supplied defaultValue in its place.
func (f *cliFlags) getCliFlag(name string, defaultValue string) cliFlag {
	s, ok := (*f)[name]
	if !ok {
		panic(fmt.Sprintf("unregistered CLI flag, %q", name))
	}
	s.val = defaultValue
	if twelveFactorMode { // if we should read env vars...
		s.val = helper.ReadValueFromEnvWithDefault(helper.FlagNameToEnvVar(s.name), defaultValue)
	}
	return s
}

// wordSepNormalizeFunc lets users type --log_level as well as --log-level.
func wordSepNormalizeFunc(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// getQueryFromArgsFunc concatenates all args into a string.
// Returns an error if there are no args.
func getQueryFromArgsFunc(query *string, customErrMsg string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 { // if we are missing arguments...
			if customErrMsg != "" {
				return errors.New(customErrMsg)
			}
			return errors.New("please supply a SQL query")
		}
		*query = strings.Join(args, " ")
		return nil
	}
}

// getPlanFromArgsFunc saves the optional plan name in arg[0], falling back to defaultPlan.
func getPlanFromArgsFunc(plan *string, defaultPlan string, validPlans []string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		switch len(args) {
		case 0:
			*plan = defaultPlan
			return nil
		case 1:
			for _, p := range validPlans {
				if args[0] == p {
					*plan = p
					return nil
				}
			}
			return fmt.Errorf("unknown plan %q: please use one of %v", args[0], strings.Join(validPlans, ", "))
		}
		return errors.New("please supply at most one plan name")
	}
}
