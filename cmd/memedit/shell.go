package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"memedit/editor"
	"memedit/pattern"
	"memedit/pod"
	"memedit/process"
)

// shell is an interactive editing session. Search results stay available
// for refinement with "next" and can be referenced as #n.
type shell struct {
	a       *app
	s       *editor.Session
	spec    pattern.Spec
	results []process.ProcessMemoryAddress
}

func newShell(a *app, s *editor.Session) *shell {
	return &shell{a: a, s: s}
}

var errQuit = errors.New("quit")

func (sh *shell) run(in io.Reader) error {
	fmt.Fprintf(sh.a.out, "Attached to %d, session %s. Type help for commands.\n", sh.s.PID(), sh.s.ID)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(sh.a.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(sh.a.out)
			return scanner.Err()
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		err := sh.exec(fields[0], fields[1:])
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(sh.a.out, "Error:", err)
		}
	}
}

func (sh *shell) help() {
	fmt.Fprint(sh.a.out,
		"    search exact|fuzzy|string|istring|number <pattern>\n",
		"    next [pattern]           keep results that still match, optionally a new value\n",
		"    results                  list results\n",
		"    read <addr|#n> [size]\n",
		"    write <addr|#n> <hex bytes>\n",
		"    writeint <addr|#n> <int>  write a little-endian int64\n",
		"    readval <addr|#n> <type> read i8..i64, u8..u64, f32 or f64\n",
		"    writeval <addr|#n> <type> <value>\n",
		"    restore <addr|#n>        restore the bytes from before the first write\n",
		"    undo                     restore every written address\n",
		"    snapshots                list restorable addresses\n",
		"    regions\n",
		"    quit\n",
	)
}

func (sh *shell) exec(cmd string, args []string) error {
	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s needs %d arguments", cmd, n)
		}
		return nil
	}

	switch cmd {
	case "help", "?":
		sh.help()
		return nil
	case "quit", "exit", "q":
		return errQuit
	case "regions":
		return sh.a.maps(sh.s)
	case "results":
		for i, addr := range sh.results {
			fmt.Fprintf(sh.a.out, "#%d %s\n", i, addr.ToString())
		}
		return nil
	case "snapshots":
		table := pod.NewTable(
			pod.ColumnSpec{Header: "ADDRESS", MinWidth: 18},
			pod.ColumnSpec{Header: "ORIGINAL"},
		)
		for _, addr := range sh.s.Snapshots() {
			original, _ := sh.s.Snapshot(addr)
			spec, _ := pattern.NewExact(process.ExactAOB(original))
			table.AddRow(addr.ToString(), spec.String())
		}
		return table.Render(sh.a.out)
	case "search":
		if err := need(2); err != nil {
			return err
		}
		return sh.search(args[0], strings.Join(args[1:], " "))
	case "next":
		return sh.next(strings.Join(args, " "))
	case "read":
		if err := need(1); err != nil {
			return err
		}
		addr, err := sh.address(args[0])
		if err != nil {
			return err
		}
		return sh.a.read(sh.s, append([]string{strconv.FormatUint(uint64(addr), 16)}, args[1:]...))
	case "write":
		if err := need(2); err != nil {
			return err
		}
		addr, err := sh.address(args[0])
		if err != nil {
			return err
		}
		data, err := parseBytes(strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		return sh.write(addr, data)
	case "writeint":
		if err := need(2); err != nil {
			return err
		}
		addr, err := sh.address(args[0])
		if err != nil {
			return err
		}
		spec, err := pattern.ParseInteger(args[1])
		if err != nil {
			return err
		}
		return sh.write(addr, spec.Bytes())
	case "readval":
		if err := need(2); err != nil {
			return err
		}
		addr, err := sh.address(args[0])
		if err != nil {
			return err
		}
		return sh.readValue(addr, args[1])
	case "writeval":
		if err := need(3); err != nil {
			return err
		}
		addr, err := sh.address(args[0])
		if err != nil {
			return err
		}
		v, err := lookupValue(args[1])
		if err != nil {
			return err
		}
		data, err := v.Encode(args[2])
		if err != nil {
			return err
		}
		return sh.write(addr, data)
	case "restore":
		if err := need(1); err != nil {
			return err
		}
		addr, err := sh.address(args[0])
		if err != nil {
			return err
		}
		if err := sh.s.Restore(addr); err != nil {
			return err
		}
		fmt.Fprintf(sh.a.out, "Restored %s\n", addr.ToString())
		return nil
	case "undo":
		n := len(sh.s.Snapshots())
		if err := sh.s.RestoreAll(); err != nil {
			return err
		}
		fmt.Fprintf(sh.a.out, "Restored %d addresses\n", n)
		return nil
	}
	return fmt.Errorf("unknown command %q, try help", cmd)
}

func lookupValue(name string) (pod.Value, error) {
	v, ok := pod.LookupValue(name)
	if !ok {
		return pod.Value{}, fmt.Errorf("unknown type %q, want one of %s", name, strings.Join(pod.ValueNames(), " "))
	}
	return v, nil
}

func (sh *shell) readValue(addr process.ProcessMemoryAddress, typ string) error {
	v, err := lookupValue(typ)
	if err != nil {
		return err
	}
	text, err := v.Read(sh.s.Reader(), addr)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.a.out, "%s %s = %s\n", addr.ToString(), v.Name, text)
	return nil
}

// address accepts a hex address or #n for the n-th search result
func (sh *shell) address(arg string) (process.ProcessMemoryAddress, error) {
	if idx, ok := strings.CutPrefix(arg, "#"); ok {
		n, err := strconv.Atoi(idx)
		if err != nil || n < 0 || n >= len(sh.results) {
			return 0, fmt.Errorf("no result %s", arg)
		}
		return sh.results[n], nil
	}
	return parseAddress(arg)
}

func (sh *shell) write(addr process.ProcessMemoryAddress, data []byte) error {
	if err := sh.s.Write(addr, data); err != nil {
		return err
	}
	fmt.Fprintf(sh.a.out, "Wrote %d bytes at %s\n", len(data), addr.ToString())
	return nil
}

func (sh *shell) search(mode, text string) error {
	ignoreCase := false
	if mode == "istring" {
		mode, ignoreCase = "string", true
	}

	spec, err := sh.a.parseSpec(mode, text, ignoreCase)
	if err != nil {
		return err
	}

	res, err := sh.s.Search(context.Background(), spec, sh.a.searchOptions()...)
	if err != nil {
		return err
	}

	sh.spec = spec
	sh.results = res.Addresses
	sh.a.printResult(sh.s, spec, res)
	return nil
}

// next re-reads every result and drops the ones that no longer match.
// With text the previous mode is kept and the results are matched against the new value.
func (sh *shell) next(text string) error {
	if sh.spec.Len() == 0 {
		return errors.New("no previous search")
	}
	if text != "" {
		spec, err := pattern.Parse(sh.spec.Kind(), text, sh.spec.CaseSensitive())
		if err != nil {
			return err
		}
		sh.spec = spec
	}

	before := len(sh.results)
	sh.results = slices.DeleteFunc(sh.results, func(addr process.ProcessMemoryAddress) bool {
		data, err := sh.s.Read(addr, process.ProcessMemorySize(sh.spec.Len()))
		if err != nil {
			return true
		}
		return !slices.Equal(sh.spec.Find(data), []int{0})
	})

	fmt.Fprintf(sh.a.out, "%d of %d results still match %s\n", len(sh.results), before, sh.spec.String())
	for i, addr := range sh.results {
		fmt.Fprintf(sh.a.out, "#%d %s\n", i, addr.ToString())
	}
	return nil
}
