package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"memedit/editor"
	"memedit/hexdump"
	"memedit/pattern"
	"memedit/pod"
	"memedit/process"
	"memedit/process_blob"
	"memedit/search"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

// how many matches are printed with a hexdump before switching to a plain list
const maxDumpedMatches = 16

func (a *app) ps(args []string) error {
	procs := a.finder.ListProcesses()
	if len(args) > 0 {
		procs = a.finder.FindByName(args[0])
	}

	table := pod.NewTable(
		pod.ColumnSpec{Header: "PID", MinWidth: 8, AlignRight: true},
		pod.ColumnSpec{Header: "NAME", FormatFunc: a.paint},
	)
	for _, p := range procs {
		table.AddRow(strconv.Itoa(int(p.PID)), p.Name)
	}
	return table.Render(a.out)
}

// paint colors a table cell when color output is enabled
func (a *app) paint(s string) string {
	if !a.cfg.Display.Color {
		return s
	}
	return coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, s)
}

func (a *app) maps(s *editor.Session) error {
	regions, err := s.EnumerateRegions()
	for _, r := range regions {
		fmt.Fprintf(a.out, "%016x-%016x %s %10d %s\n", r.Address, r.End(), r.Perms, r.Size, r.Path)
	}
	if err != nil {
		return fmt.Errorf("region walk stopped after %d regions: %w", len(regions), err)
	}
	return nil
}

func (a *app) searchOptions() []search.Option {
	return []search.Option{
		search.WithReadableOnly(a.cfg.Search.ReadableOnly),
		search.WithMaxRegionSize(a.cfg.Search.MaxRegionSize),
		search.WithMaxResults(a.cfg.Search.MaxResults),
	}
}

func (a *app) parseSpec(mode string, text string, ignoreCase bool) (pattern.Spec, error) {
	kind, err := pattern.ParseKind(mode)
	if err != nil {
		return pattern.Spec{}, err
	}
	return pattern.Parse(kind, text, !ignoreCase)
}

func (a *app) search(s *editor.Session, args []string) error {
	spec, err := a.parseSpec(a.mode, strings.Join(args, " "), a.ignoreCase)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	last := -1
	opts := append(a.searchOptions(), search.WithProgress(func(p search.Progress) {
		pct := int(p.Fraction * 100)
		if pct != last {
			last = pct
			fmt.Fprintf(os.Stderr, "\rsearching %3d%% (%d matches)", pct, p.Matches)
		}
	}))

	res, err := s.Search(ctx, spec, opts...)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	a.printResult(s, spec, res)
	return nil
}

func (a *app) printResult(s *editor.Session, spec pattern.Spec, res search.Result) {
	status := "complete"
	if res.Cancelled {
		status = "cancelled"
	} else if res.Truncated {
		status = "stopped at result limit"
	}
	fmt.Fprintf(a.out, "Search %s: %d matches for %s (%d regions scanned, %d skipped, %d bytes)\n",
		status, len(res.Addresses), spec.String(), res.Scanned, res.Skipped, res.BytesScanned)

	for i, addr := range res.Addresses {
		if i >= maxDumpedMatches {
			fmt.Fprintf(a.out, "#%d %s\n", i, addr.ToString())
			continue
		}
		fmt.Fprintf(a.out, "#%d match at %s:\n", i, addr.ToString())
		a.showAround(s, addr, spec.Len())
	}
}

// showAround prints a hexdump of the line-aligned window around a match.
// Bytes outside the match's region cannot be read, so the window is shrunk to the match itself.
func (a *app) showAround(s *editor.Session, addr process.ProcessMemoryAddress, length int) {
	start, size := hexdump.Window(uint64(addr), length, a.cfg.Display.Context, a.cfg.Display.BytesPerLine)
	data, err := s.Read(process.ProcessMemoryAddress(start), process.ProcessMemorySize(size))
	if err != nil {
		start, size = uint64(addr), length
		if data, err = s.Read(addr, process.ProcessMemorySize(size)); err != nil {
			fmt.Fprintf(a.out, "  (unreadable: %v)\n", err)
			return
		}
	}

	fmt.Fprint(a.out, hexdump.Dump(data, hexdump.Options{
		BytesPerLine:     a.cfg.Display.BytesPerLine,
		StartAddress:     start,
		HighlightAddress: uint64(addr),
		HighlightLen:     length,
		Color:            a.cfg.Display.Color,
	}))
}

func (a *app) read(s *editor.Session, args []string) error {
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	size := process.ProcessMemorySize(64)
	if len(args) > 1 {
		if size, err = parseSize(args[1]); err != nil {
			return err
		}
	}

	data, err := s.Read(addr, size)
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, hexdump.Dump(data, hexdump.Options{BytesPerLine: a.cfg.Display.BytesPerLine, StartAddress: uint64(addr)}))
	return nil
}

// parseBytes parses the hex grammar and rejects wildcards
func parseBytes(text string) ([]byte, error) {
	aob, err := pattern.ParseAOB(text)
	if err != nil {
		return nil, err
	}
	for i := 0; i < aob.Len(); i++ {
		if aob.IsWildcard(i) {
			return nil, fmt.Errorf("%w: wildcards cannot be written", process.ErrInvalidPattern)
		}
	}
	return aob.Pattern, nil
}

func (a *app) write(s *editor.Session, args []string) error {
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	data, err := parseBytes(strings.Join(args[1:], " "))
	if err != nil {
		return err
	}

	if err := s.Write(addr, data); err != nil {
		return err
	}

	// the session ends with this command, so show what a manual revert needs
	if original, ok := s.Snapshot(addr); ok {
		spec, _ := pattern.NewExact(process.ExactAOB(original))
		fmt.Fprintf(a.out, "Wrote %d bytes at %s (was: %s)\n", len(data), addr.ToString(), spec.String())
	}
	return nil
}

func (a *app) dump(s *editor.Session) error {
	if a.outputDir == "" {
		return errors.New("--output is required")
	}

	stats, err := s.Dump(a.outputDir, process_blob.SaveOptions{
		Name:          a.processName(s.PID()),
		MaxRegionSize: a.cfg.Dump.MaxRegionSize,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Saved %d of %d regions (%d bytes) to %s\n", stats.Saved, stats.Regions, stats.Bytes, a.outputDir)
	fmt.Fprintf(a.out, "  skipped non-readable: %d\n  skipped too large: %d\n  read errors: %d\n",
		stats.SkippedNonReadable, stats.SkippedTooLarge, stats.ReadErrors)
	return nil
}

func (a *app) processName(pid process.ProcessID) string {
	for _, p := range a.finder.ListProcesses() {
		if p.PID == pid {
			return p.Name
		}
	}
	return process.UnknownProcessName
}
