// Package flagx splits a command line into the flags owned by the global
// configuration and the remainder handed to a subcommand.
package flagx

import (
	"flag"
	"strings"
)

// Partition separates args into the allowed flags (with their values) and
// everything else, keeping the relative order of both halves.
//
// An allowed flag may carry its value inline ("-tz=UTC") or as the next
// token ("-tz UTC"). The next token is only consumed when it does not start
// with '-'.
func Partition(args []string, allowedFlags []string) (matched, rest []string) {
	allowed := make(map[string]bool, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = true
	}

	matched = make([]string, 0, len(args))
	rest = make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		name, _, inline := strings.Cut(args[i], "=")
		if !strings.HasPrefix(name, "-") || !allowed[name] {
			rest = append(rest, args[i])
			continue
		}

		matched = append(matched, args[i])
		if !inline && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			matched = append(matched, args[i])
		}
	}

	return matched, rest
}

// FilterArgs returns only the allowed flags and their values.
func FilterArgs(args []string, allowedFlags []string) []string {
	matched, _ := Partition(args, allowedFlags)
	return matched
}

// StripArgs returns args with the allowed flags and their values removed.
func StripArgs(args []string, allowedFlags []string) []string {
	_, rest := Partition(args, allowedFlags)
	return rest
}

// ConfigFileFlags lists the flags that name a configuration file.
var ConfigFileFlags = []string{"-c", "-config"}

// ConfigFile extracts the configuration file path given with -c or -config.
// Other arguments are ignored. If neither flag is present, an empty string is
// returned; when both are present the last one wins.
func ConfigFile(args []string) string {
	var config string

	fs := flag.NewFlagSet("config-file", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, ConfigFileFlags))

	return config
}
