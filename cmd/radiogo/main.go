package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/version"
)

const appName = "radiogo"

// Version is set via build flag -ldflags -X main.Version
var (
	Version  string
	Branch   string
	Revision string
)

func init() {
	version.Version = Version
	version.Branch = Branch
	version.Revision = Revision
	prometheus.MustRegister(version.NewCollector(appName))
}

func main() {
	cfg, fs, err := loadConfig(os.Args[1:])
	if err != nil {
		fail(err)
	}

	root := newRootCmd(cfg, fs)
	root.SetArgs(normalizeArgs(os.Args[1:], fs))
	if err := root.Execute(); err != nil {
		fail(err)
	}
}

func fail(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "error: %s\n", strings.TrimSpace(err.Error()))
	os.Exit(1)
}
