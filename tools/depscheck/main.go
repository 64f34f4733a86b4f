// Command depscheck fails when a core replication package reaches for an
// outer layer. The core must stay usable without HTTP, websockets or the
// process wiring.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const module = "github.com/benruijl/walledin"

type packageInfo struct {
	ImportPath string
	Imports    []string
}

// rule forbids packages under From from importing anything with a prefix in
// Forbidden.
type rule struct {
	From      string
	Forbidden []string
}

var rules = []rule{
	{
		From: module + "/internal/attribute",
		Forbidden: []string{
			module + "/internal/",
			module + "/logging",
		},
	},
	{
		From: module + "/internal/net/proto",
		Forbidden: []string{
			module + "/internal/entity",
			module + "/internal/transport",
			module + "/logging",
		},
	},
}

// outer layers no core package may depend on.
var outer = []string{
	"github.com/gin-gonic/gin",
	"github.com/gorilla/websocket",
	module + "/internal/app",
	module + "/internal/config",
	module + "/internal/net/ws",
}

var core = []string{
	module + "/internal/attribute",
	module + "/internal/entity",
	module + "/internal/net/proto",
	module + "/internal/liveness",
	module + "/internal/replication",
	module + "/internal/transport",
	module + "/internal/world",
	module + "/internal/gameserver",
	module + "/internal/master",
	module + "/internal/client",
}

func main() {
	cmd := exec.Command("go", "list", "-json", "./internal/...")
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	pkgs, err := decode(output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "depscheck: failed to decode package info: %v\n", err)
		os.Exit(1)
	}

	if violations := check(pkgs); len(violations) > 0 {
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

func decode(output []byte) ([]packageInfo, error) {
	decoder := json.NewDecoder(bytes.NewReader(output))
	var pkgs []packageInfo
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				return pkgs, nil
			}
			return nil, err
		}
		pkgs = append(pkgs, pkg)
	}
}

func check(pkgs []packageInfo) []string {
	var violations []string
	for _, pkg := range pkgs {
		for _, imp := range pkg.Imports {
			if forbidden(pkg.ImportPath, imp) {
				violations = append(violations, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
			}
		}
	}
	sort.Strings(violations)
	return violations
}

func forbidden(from, imp string) bool {
	for _, c := range core {
		if within(from, c) && hasAnyPrefix(imp, outer) {
			return true
		}
	}
	for _, r := range rules {
		if within(from, r.From) && hasAnyPrefix(imp, r.Forbidden) {
			return true
		}
	}
	return false
}

func within(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+"/")
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
