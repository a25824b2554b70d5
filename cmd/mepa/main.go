// cmd/mepa/main.go
//
// Command mepa is the toolchain's CLI shell (SPEC_FULL.md §4.11, out of
// scope per spec.md but built as an illustrative front end), grounded on
// cmd/sentra/main.go's manual-flag-parsing style and single-letter command
// aliases.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	mepaerrors "mepa/internal/errors"

	"mepa/internal/cfgserver"
	"mepa/internal/compiler"
	"mepa/internal/debugger"
	"mepa/internal/evalharness"
	"mepa/internal/mepa"
	"mepa/internal/optimizer"
	"mepa/internal/vm"
)

const version = "0.1.0"

// exit codes, per SPEC_FULL.md §4.11
const (
	exitOK      = 0
	exitCompile = 1
	exitIO      = 2
	exitRuntime = 3
)

var commandAliases = map[string]string{
	"c": "compile",
	"r": "run",
	"o": "optimize",
	"d": "debug",
	"e": "eval",
	"s": "serve",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		os.Exit(exitOK)
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}
	rest := args[1:]

	var err error
	switch cmd {
	case "--help", "-h", "help":
		showUsage()
		return
	case "--version", "-v", "version":
		fmt.Println("mepa", version)
		return
	case "compile":
		err = runCompile(rest)
	case "run":
		err = runRun(rest)
	case "optimize":
		err = runOptimize(rest)
	case "debug":
		err = runDebug(rest)
	case "eval":
		err = runEval(rest)
	case "serve":
		err = runServe(rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		showUsage()
		os.Exit(exitCompile)
	}

	if err == nil {
		os.Exit(exitOK)
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(exitCodeFor(err))
}

// exitCodeFor maps an error to SPEC_FULL.md §4.11's exit codes: a
// CompilerError carries its own kind (compile/semantic vs IO vs runtime);
// anything else defaults to a compile-stage failure, the most common
// source of untyped errors in this toolchain.
func exitCodeFor(err error) int {
	var ce *mepaerrors.CompilerError
	if asCompilerError(err, &ce) {
		switch ce.Kind {
		case mepaerrors.IOErr:
			return exitIO
		case mepaerrors.Runtime:
			return exitRuntime
		default:
			return exitCompile
		}
	}
	if os.IsNotExist(err) || os.IsPermission(err) {
		return exitIO
	}
	return exitCompile
}

func asCompilerError(err error, target **mepaerrors.CompilerError) bool {
	ce, ok := err.(*mepaerrors.CompilerError)
	if ok {
		*target = ce
	}
	return ok
}

// sourceFiles expands a path argument into the *.mepa source files it
// names: a single file as-is, or every *.mepa file in a directory (spec.md
// §6).
func sourceFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".mepa") {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	return files, nil
}

func readSource(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func runCompile(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: mepa compile <path> [-o out]")
	}
	out := ""
	for i := 1; i < len(args); i++ {
		if args[i] == "-o" && i+1 < len(args) {
			out = args[i+1]
		}
	}

	files, err := sourceFiles(args[0])
	if err != nil {
		return err
	}
	for _, f := range files {
		src, err := readSource(f)
		if err != nil {
			return err
		}
		code, err := compiler.Compile(src)
		if err != nil {
			return err
		}

		dest := out
		if dest == "" {
			dest = strings.TrimSuffix(f, filepath.Ext(f)) + ".mep"
		}
		w, err := os.Create(dest)
		if err != nil {
			return err
		}
		defer w.Close()
		if err := mepa.Write(w, code); err != nil {
			return err
		}
		fmt.Println("compiled", f, "->", dest)
	}
	return nil
}

func runRun(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: mepa run <path.mepa|path.mep> [input ints...]")
	}
	code, err := loadOrCompile(args[0])
	if err != nil {
		return err
	}
	input, err := parseInts(args[1:])
	if err != nil {
		return err
	}

	out, err := vm.Run(code, input)
	for _, v := range out {
		fmt.Println(v)
	}
	if err != nil {
		return mepaerrors.NewRuntime("%v", err)
	}
	return nil
}

func runOptimize(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: mepa optimize <path> [-o out]")
	}
	out := ""
	for i := 1; i < len(args); i++ {
		if args[i] == "-o" && i+1 < len(args) {
			out = args[i+1]
		}
	}

	code, err := loadOrCompile(args[0])
	if err != nil {
		return err
	}
	optimized, err := optimizer.Optimize(code)
	if err != nil {
		return err
	}

	dest := out
	if dest == "" {
		dest = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".opt.mep"
	}
	w, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer w.Close()
	if err := mepa.Write(w, optimized); err != nil {
		return err
	}
	fmt.Printf("optimized %s -> %s (%d -> %d instructions)\n", args[0], dest, code.Len(), optimized.Len())
	return nil
}

func runDebug(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: mepa debug <path> [input ints...]")
	}
	code, err := loadOrCompile(args[0])
	if err != nil {
		return err
	}
	input, err := parseInts(args[1:])
	if err != nil {
		return err
	}

	m := vm.NewWithInput(code, input)
	d := debugger.New(m, os.Stdin, os.Stdout)
	trace, err := d.Run(nil)
	for _, v := range trace {
		fmt.Println(v)
	}
	if err != nil {
		return mepaerrors.NewRuntime("%v", err)
	}
	return nil
}

func runEval(args []string) error {
	format := "text"
	for i := 0; i < len(args); i++ {
		if args[i] == "--format" && i+1 < len(args) {
			format = args[i+1]
		}
	}

	var reporter evalharness.Reporter
	switch format {
	case "json":
		reporter = evalharness.NewJSONReporter(os.Stdout)
	default:
		reporter = evalharness.NewTextReporter(os.Stdout)
	}

	stats := evalharness.Run(evalharness.SeedScenarios(), reporter)
	if stats.Failed > 0 {
		return mepaerrors.NewRuntime("%d of %d scenarios failed", stats.Failed, stats.Total)
	}
	return nil
}

func runServe(args []string) error {
	addr := ":8080"
	var input []int32
	var path string
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-addr" && i+1 < len(args):
			addr = args[i+1]
			i++
		case path == "":
			path = args[i]
		default:
			v, err := strconv.ParseInt(args[i], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid input int %q: %w", args[i], err)
			}
			input = append(input, int32(v))
		}
	}
	if path == "" {
		return fmt.Errorf("usage: mepa serve <path> [-addr :8080] [input ints...]")
	}

	code, err := loadOrCompile(path)
	if err != nil {
		return err
	}
	srv, err := cfgserver.New(code, input)
	if err != nil {
		return err
	}
	fmt.Println("serving CFG and live trace on", addr)
	return srv.ListenAndServe(addr)
}

// loadOrCompile loads path as MEPA text-form bytecode if its extension is
// .mep, otherwise compiles it as a .mepa source file.
func loadOrCompile(path string) (*mepa.Code, error) {
	if strings.HasSuffix(path, ".mep") {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return mepa.Parse(bufio.NewReader(f))
	}
	src, err := readSource(path)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(src)
}

func parseInts(args []string) ([]int32, error) {
	out := make([]int32, 0, len(args))
	for _, a := range args {
		v, err := strconv.ParseInt(a, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid input int %q: %w", a, err)
		}
		out = append(out, int32(v))
	}
	return out, nil
}

func showUsage() {
	fmt.Println(`mepa - MEPA toolchain

Usage:
  mepa compile  <path> [-o out]            compile source to bytecode text form
  mepa run      <path> [input ints...]     compile/load and execute
  mepa optimize <path> [-o out]            run the fixed-point optimizer
  mepa debug    <path> [input ints...]     interactive breakpoint/step debugger
  mepa eval     [--format text|json]       run the seed regression scenarios
  mepa serve    <path> [-addr :8080]       serve the CFG and a live trace over HTTP

Aliases: c=compile r=run o=optimize d=debug e=eval s=serve
Path may be a source (.mepa) or compiled (.mep) file; compile also accepts a directory of .mepa files.`)
}
