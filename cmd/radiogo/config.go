package main

import (
	"flag"
	"io"
	"strings"

	"github.com/grafana/dskit/flagext"

	"github.com/zachfi/radiogo/app"
)

const configFileOption = "config.file"

// loadConfig registers every option with its default on a new flag set and overlays the config
// file named by --config.file. The command line is parsed later, on top of both.
func loadConfig(args []string) (*app.Config, *flag.FlagSet, error) {
	var configFile string

	config := &app.Config{}

	// first get the config file
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&configFile, configFileOption, "", "")

	// Try to find -config.file. As Parsing stops on the first error, eg. unknown flag,
	// we simply try remaining parameters until we find config flag, or there are no params left.
	// (ContinueOnError just means that flag.Parse doesn't call panic or os.Exit, but it returns error, which we ignore)
	for len(args) > 0 {
		_ = fs.Parse(args)
		args = args[1:]
	}

	// load config defaults and register flags
	flags := flag.NewFlagSet(appName, flag.ContinueOnError)
	config.RegisterFlagsAndApplyDefaults("", flags)

	// overlay with config file if provided
	if configFile != "" {
		if err := config.LoadFile(configFile); err != nil {
			return nil, nil, err
		}
	}

	// the cli overlays both when the command parses its flags
	flagext.IgnoredFlag(flags, configFileOption, "Configuration file to load")

	return config, flags, nil
}

// normalizeArgs rewrites go style single dash long flags, such as -config.file, to the double
// dash form cobra expects. Only names registered on fs are rewritten, so shorthands and
// positional arguments pass through unchanged.
func normalizeArgs(args []string, fs *flag.FlagSet) []string {
	out := make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "--" {
			return append(out, args[i:]...)
		}

		name, _, _ := strings.Cut(strings.TrimPrefix(arg, "-"), "=")
		if strings.HasPrefix(arg, "-") && !strings.HasPrefix(arg, "--") && len(name) > 1 && fs.Lookup(name) != nil {
			arg = "-" + arg
		}
		out = append(out, arg)
	}
	return out
}
