// Command hulksema runs the semantic core's Check over every fixture
// bundle under a fixtures directory, reporting diagnostics against each
// bundle's golden expectation and recording a run ledger entry per
// bundle.
package main

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/hulklang/sema/internal/cliconfig"
	"github.com/hulklang/sema/internal/config"
	"github.com/hulklang/sema/internal/fixture"
	"github.com/hulklang/sema/internal/ledger"
	"github.com/hulklang/sema/internal/semantic"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") != "" {
				panic(r)
			}
			fmt.Fprintf(os.Stderr, "internal error: %v\n", r)
			os.Exit(2)
		}
	}()

	if !run(os.Args[1:]) {
		os.Exit(1)
	}
}

// run returns false when any bundle failed to check clean against its
// golden expectation.
func run(args []string) bool {
	if len(args) > 0 && args[0] == "--version" {
		fmt.Printf("hulksema %s\n", config.Version)
		return true
	}
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "- %s\n", err)
		return false
	}
	if len(args) > 1 && args[0] == "history" {
		return printHistory(cfg, args[1])
	}
	if len(args) > 0 {
		cfg.FixturesDir = args[0]
	}

	colorize := shouldColorize(cfg.Color)

	bundles, err := fixture.Load(cfg.FixturesDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "- %s\n", err)
		return false
	}
	if len(bundles) == 0 {
		fmt.Fprintf(os.Stderr, "- no fixtures found under %s\n", cfg.FixturesDir)
		return false
	}

	led, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "- %s\n", err)
		return false
	}
	defer led.Close()

	results := make([]bundleResult, len(bundles))
	sem := make(chan struct{}, cfg.Concurrency)
	var grp errgroup.Group
	var ledgerMu sync.Mutex

	for i, b := range bundles {
		i, b := i, b
		grp.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			started := time.Now()
			res := checkBundle(b)
			finished := time.Now()

			ledgerMu.Lock()
			_, lerr := led.Record(b.Name, started, finished, len(res.got), res.progress, res.summary())
			ledgerMu.Unlock()
			if lerr != nil {
				return lerr
			}

			results[i] = res
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "- %s\n", err)
		return false
	}

	ok := true
	for _, res := range results {
		printResult(res, colorize)
		if !res.passed {
			ok = false
		}
	}
	return ok
}

// printHistory lists the most recent ledger entries recorded for one
// bundle, newest first.
func printHistory(cfg *cliconfig.Config, bundle string) bool {
	led, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "- %s\n", err)
		return false
	}
	defer led.Close()

	entries, err := led.Recent(bundle, 20)
	if err != nil {
		fmt.Fprintf(os.Stderr, "- %s\n", err)
		return false
	}
	if len(entries) == 0 {
		fmt.Printf("no recorded runs for %s\n", bundle)
		return true
	}
	for _, e := range entries {
		fmt.Printf("%s  %s  errors=%d progress=%d  %s\n",
			e.StartedAt.Format(time.RFC3339), e.Bundle, e.ErrorCount, e.TypingProgress, e.Message)
	}
	return true
}

func loadConfig() (*cliconfig.Config, error) {
	path, err := cliconfig.FindConfig(".")
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cliconfig.Default(), nil
	}
	return cliconfig.LoadConfig(path)
}

func shouldColorize(mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return false
		}
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}
}

type bundleResult struct {
	name     string
	passed   bool
	got      []string
	expected []string
	progress int
	err      error
}

func (r bundleResult) summary() string {
	if r.err != nil {
		return r.err.Error()
	}
	if r.passed {
		return "ok"
	}
	return fmt.Sprintf("got %d diagnostics, expected %d", len(r.got), len(r.expected))
}

func checkBundle(b fixture.Bundle) bundleResult {
	res := bundleResult{name: b.Name, expected: b.Expected}
	sema, err := semantic.Check(b.Program)
	if err != nil {
		res.got = []string{err.Error()}
	} else {
		res.progress = sema.Progress
	}
	res.passed = diagnosticsMatch(res.got, res.expected)
	return res
}

func diagnosticsMatch(got, expected []string) bool {
	if len(got) != len(expected) {
		return false
	}
	for i := range got {
		if got[i] != expected[i] {
			return false
		}
	}
	return true
}

func printResult(r bundleResult, colorize bool) {
	if r.passed {
		fmt.Printf("%s %s\n", colorTag("PASS", 32, colorize), r.name)
		return
	}
	fmt.Printf("%s %s\n", colorTag("FAIL", 31, colorize), r.name)
	fmt.Printf("  expected:\n%s", indentLines(r.expected))
	fmt.Printf("  got:\n%s", indentLines(r.got))
}

func colorTag(text string, code int, colorize bool) string {
	if !colorize {
		return text
	}
	return fmt.Sprintf("\033[%dm%s\033[0m", code, text)
}

func indentLines(lines []string) string {
	if len(lines) == 0 {
		return "    (none)\n"
	}
	var b strings.Builder
	for _, l := range lines {
		b.WriteString("    ")
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}
