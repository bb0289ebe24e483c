// cmd/guard/flags.go
package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"
)

type options struct {
	configPath  string
	logLevel    string
	logFormat   string
	discover    bool
	discoverFor time.Duration
	testBuzzer  bool
	dryRun      bool
	help        bool
}

func parseFlags(args []string, stderr io.Writer) (options, *pflag.FlagSet, error) {
	var o options

	fs := pflag.NewFlagSet("guard", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&o.configPath, "config", "c", "guard.yaml", "path to the YAML config")
	fs.StringVar(&o.logLevel, "log-level", "info", "debug, info, warn or error")
	fs.StringVar(&o.logFormat, "log-format", "text", "text or json")
	fs.BoolVar(&o.discover, "discover", false, "list nearby iBeacons and exit")
	fs.DurationVar(&o.discoverFor, "discover-for", 10*time.Second, "scan duration for --discover")
	fs.BoolVar(&o.testBuzzer, "test-buzzer", false, "sound the alarm pattern twice and exit")
	fs.BoolVar(&o.dryRun, "dry-run", false, "log buzzer changes instead of driving GPIO")
	fs.BoolVarP(&o.help, "help", "h", false, "show help")

	if err := fs.Parse(args); err != nil {
		return o, fs, err
	}
	if fs.NArg() > 0 {
		return o, fs, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	if o.discover && o.discoverFor <= 0 {
		return o, fs, fmt.Errorf("--discover-for must be > 0")
	}
	return o, fs, nil
}

func printHelp(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(w, `guard watches tracked laptops and sounds an alarm when one disappears
or its distance sensor reports an anomaly.

Usage:
  guard [flags]

Flags:
%s`, fs.FlagUsages())
}
