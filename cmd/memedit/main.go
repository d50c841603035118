package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"memedit/config"
	"memedit/editor"
	"memedit/process"
	"memedit/process_finder"

	"github.com/spf13/pflag"
)

func usage(w io.Writer) {
	fmt.Fprint(w,
		"Usage:\n",
		"    memedit ps [name]\n",
		"    memedit maps <pid_or_exename>\n",
		"    memedit search <pid_or_exename> [--mode exact|fuzzy|string|number] [--ignore-case] <pattern>\n",
		"    memedit read <pid_or_exename> <addr> [size]\n",
		"    memedit write <pid_or_exename> <addr> <hex bytes>\n",
		"    memedit dump <pid_or_exename> --output <dir>\n",
		"    memedit shell <pid_or_exename>\n",
		"\n",
		"maps, search, read and shell accept --dump <dir> instead of a process.\n",
		"Byte patterns are two digit hex tokens, ?? matches any byte: \"A0 B0 ?? FF\"\n",
	)
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(1)
	}

	if err := run(os.Args[1], os.Args[2:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type app struct {
	cfg        config.Config
	out        io.Writer
	finder     *process_finder.Finder
	mode       string
	ignoreCase bool
	dumpDir    string
	outputDir  string
}

func run(cmd string, args []string, in io.Reader, out io.Writer) error {
	fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
	fs.SetOutput(out)
	config.RegisterFlags(fs)

	a := &app{out: out, finder: process_finder.New()}
	fs.StringVarP(&a.mode, "mode", "m", "exact", "search mode: exact, fuzzy, string or number")
	fs.BoolVarP(&a.ignoreCase, "ignore-case", "i", false, "fold ASCII case in string mode")
	fs.StringVar(&a.dumpDir, "dump", "", "operate on a saved dump instead of a live process")
	fs.StringVarP(&a.outputDir, "output", "o", "", "output directory for dump")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}
	a.cfg = cfg
	args = fs.Args()

	switch cmd {
	case "ps":
		return a.ps(args)
	case "maps":
		return a.withSession(args, 0, func(s *editor.Session, _ []string) error { return a.maps(s) })
	case "search":
		return a.withSession(args, 1, a.search)
	case "read":
		return a.withSession(args, 1, a.read)
	case "write":
		return a.withSession(args, 2, a.write)
	case "dump":
		return a.withSession(args, 0, func(s *editor.Session, _ []string) error { return a.dump(s) })
	case "shell":
		return a.withSession(args, 0, func(s *editor.Session, _ []string) error { return newShell(a, s).run(in) })
	case "help", "-h", "--help":
		usage(out)
		return nil
	}

	usage(out)
	return fmt.Errorf("unknown command %q", cmd)
}

// withSession opens the target named by the first argument (or the --dump directory)
// and hands the remaining arguments to fn. The session is always closed.
func (a *app) withSession(args []string, minArgs int, fn func(*editor.Session, []string) error) error {
	var s *editor.Session
	var err error

	if a.dumpDir != "" {
		s, err = editor.OpenDump(a.dumpDir)
	} else {
		if len(args) == 0 {
			return errors.New("missing <pid_or_exename>")
		}
		var pid process.ProcessID
		pid, err = a.finder.Resolve(args[0])
		if err != nil {
			return err
		}
		args = args[1:]
		s, err = editor.Attach(pid)
	}
	if err != nil {
		return err
	}
	defer s.Close()

	if len(args) < minArgs {
		return fmt.Errorf("expected at least %d more arguments", minArgs)
	}
	return fn(s, args)
}

// parseAddress reads a hex address with or without 0x, as printed by maps and search
func parseAddress(s string) (process.ProcessMemoryAddress, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return process.ProcessMemoryAddress(v), nil
}

func parseSize(s string) (process.ProcessMemorySize, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return process.ProcessMemorySize(v), nil
}
