package cmd

import (
	"flag"
	"testing"

	"github.com/urfave/cli/v2"
)

func TestReadOnlyFlags(t *testing.T) {
	names := map[string]bool{}
	for _, f := range ReadOnlyFlags() {
		names[f.Names()[0]] = true
	}
	for _, want := range []string{"format", "no-color"} {
		if !names[want] {
			t.Errorf("ReadOnlyFlags should include --%s", want)
		}
	}
}

func TestRunFlags_IncludeOutputFlags(t *testing.T) {
	names := map[string]bool{}
	for _, f := range RunFlags() {
		names[f.Names()[0]] = true
	}
	for _, want := range []string{"config", "output", "k2-url", "timeout", "report", "quiet", "format", "no-color"} {
		if !names[want] {
			t.Errorf("RunFlags should include --%s", want)
		}
	}
}

// newTestCLIContext builds a minimal *cli.Context with the given flags set.
// flagValues maps flag names to their string values. All listed flags are
// registered and marked as explicitly set (c.IsSet returns true).
// defaultFlags maps flag names to default values (not explicitly set).
func newTestCLIContext(t *testing.T, flagValues map[string]string, defaultFlags map[string]string) *cli.Context {
	t.Helper()
	app := cli.NewApp()

	allFlags := make(map[string]string)
	for k, v := range defaultFlags {
		allFlags[k] = v
	}
	for k, v := range flagValues {
		allFlags[k] = v
	}

	var cliFlags []cli.Flag
	for name, val := range allFlags {
		cliFlags = append(cliFlags, &cli.StringFlag{Name: name, Value: val})
	}
	app.Flags = cliFlags

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	for name, val := range allFlags {
		fs.String(name, val, "")
	}

	// Only set the flagValues (not defaults) so c.IsSet works
	for name, val := range flagValues {
		if err := fs.Set(name, val); err != nil {
			t.Fatalf("failed to set flag %s: %v", name, err)
		}
	}

	return cli.NewContext(app, fs, nil)
}

func TestResolveString_CLIWins(t *testing.T) {
	c := newTestCLIContext(t, map[string]string{"output": "/from/cli"}, nil)
	if got := resolveString(c, "output", "/from/config"); got != "/from/cli" {
		t.Errorf("expected CLI to win, got %q", got)
	}
}

func TestResolveString_ConfigFallback(t *testing.T) {
	c := newTestCLIContext(t, nil, map[string]string{"output": ""})
	if got := resolveString(c, "output", "/from/config"); got != "/from/config" {
		t.Errorf("expected config fallback, got %q", got)
	}
}

func TestResolveString_FlagDefault(t *testing.T) {
	c := newTestCLIContext(t, nil, map[string]string{"config": "k2-creek.yaml"})
	if got := resolveString(c, "config", ""); got != "k2-creek.yaml" {
		t.Errorf("expected flag default, got %q", got)
	}
}
