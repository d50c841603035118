// Package hexdump renders target memory as offset, hex and ASCII columns
package hexdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"memedit/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

// Options defines options for customizing the hexdump output
type Options struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// StartAddress is the address of data[0]
	StartAddress uint64

	// HighlightAddress and HighlightLen mark a range to bracket, usually a search match
	HighlightAddress uint64
	HighlightLen     int

	// Color additionally paints the highlighted range with ANSI colors
	Color bool

	// MaxLines is the maximum number of lines to show (0 for no limit)
	MaxLines int

	// Regions, when set, annotates the first 8 bytes of a line if they point into a mapped region
	Regions []memory_map.MemoryRegion
}

// DefaultOptions returns the default hexdump options
func DefaultOptions() Options {
	return Options{BytesPerLine: 16}
}

// Dump creates a hex dump of the given data with specified options
func Dump(data []byte, options Options) string {
	var buffer bytes.Buffer
	DumpToWriter(&buffer, data, options)
	return buffer.String()
}

// DumpToWriter writes a hex dump of the given data to the specified writer
func DumpToWriter(writer io.Writer, data []byte, options Options) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}

	lineCount := 0
	for offset := 0; offset < len(data); offset += options.BytesPerLine {
		if options.MaxLines > 0 && lineCount >= options.MaxLines {
			fmt.Fprintf(writer, "... %d more bytes\n", len(data)-offset)
			break
		}

		end := min(offset+options.BytesPerLine, len(data))
		formatLine(writer, data[offset:end], options.StartAddress+uint64(offset), options)
		lineCount++
	}
}

func (o Options) highlighted(addr uint64) bool {
	return o.HighlightLen > 0 && addr >= o.HighlightAddress && addr-o.HighlightAddress < uint64(o.HighlightLen)
}

func (o Options) paint(s string) string {
	if !o.Color {
		return s
	}
	return coloransi.Color(coloransi.Red, coloransi.ColorOrange, s)
}

// formatLine writes one line:
//
//	00000010: de[ad be ef]ca fe 00 00 | 00 00 00 00 00 00 00 00   ......... ........
func formatLine(writer io.Writer, data []byte, addr uint64, options Options) {
	n := options.BytesPerLine

	// sep[i] precedes byte i, sep[n] closes the line
	sep := make([]byte, n+1)
	for i := range sep {
		sep[i] = ' '
	}
	for i := 0; i < len(data); i++ {
		if !options.highlighted(addr + uint64(i)) {
			continue
		}
		if i == 0 || !options.highlighted(addr+uint64(i-1)) {
			sep[i] = '['
		}
		if !options.highlighted(addr + uint64(i+1)) {
			sep[i+1] = ']'
		}
	}

	var line strings.Builder
	fmt.Fprintf(&line, "%08x:", addr)

	mid := -1
	if n >= 8 {
		mid = n / 2
	}

	for i := 0; i < n; i++ {
		switch {
		case i == mid && sep[i] == '[':
			line.WriteString(" |[")
		case i == mid:
			line.WriteByte(sep[i])
			line.WriteString("| ")
		default:
			line.WriteByte(sep[i])
		}
		if i >= len(data) {
			line.WriteString("  ")
			continue
		}
		hex := fmt.Sprintf("%02x", data[i])
		if options.highlighted(addr + uint64(i)) {
			hex = options.paint(hex)
		}
		line.WriteString(hex)
	}
	line.WriteByte(sep[n])

	line.WriteString("  ")
	for i, b := range data {
		if i == mid {
			line.WriteByte(' ')
		}
		c := "."
		if b >= 0x20 && b < 0x7f {
			c = string(rune(b))
		}
		if options.highlighted(addr + uint64(i)) {
			c = options.paint(c)
		}
		line.WriteString(c)
	}

	if options.Regions != nil && len(data) >= 8 {
		ptr := binary.LittleEndian.Uint64(data[:8])
		if r := memory_map.Find(options.Regions, ptr); r != nil {
			fmt.Fprintf(&line, "  -> 0x%x %s", ptr, r.Path)
		}
	}

	fmt.Fprintln(writer, strings.TrimRight(line.String(), " "))
}

// Window returns a line-aligned range covering [addr, addr+length) plus context bytes on each side
func Window(addr uint64, length, context, bytesPerLine int) (start uint64, size int) {
	if bytesPerLine <= 0 {
		bytesPerLine = 16
	}
	line := uint64(bytesPerLine)

	start = addr
	if uint64(context) <= start {
		start -= uint64(context)
	} else {
		start = 0
	}
	start -= start % line

	end := addr + uint64(length) + uint64(context)
	if rem := end % line; rem != 0 {
		end += line - rem
	}
	return start, int(end - start)
}
