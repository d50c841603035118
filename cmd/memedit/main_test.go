package main

import (
	"bytes"
	"strings"
	"testing"

	"memedit/process/memory_map"
	"memedit/process_blob"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saveFixture(t *testing.T) string {
	t.Helper()
	b := process_blob.New(1234, "fixture")
	require.NoError(t, b.AddRegion(memory_map.MemoryRegion{Address: 0x10, Size: 6, Perms: "rw-p", Path: "[heap]"}, []byte{0xDE, 0xAD, 0xBE, 0xEF, 0xCA, 0xFE}))
	require.NoError(t, b.AddRegion(memory_map.MemoryRegion{Address: 0x1000, Size: 16, Perms: "rw-p"}, []byte("player one hello")))

	dir := t.TempDir()
	_, err := process_blob.Save(b, dir, process_blob.SaveOptions{Name: "fixture"})
	require.NoError(t, err)
	return dir
}

func TestMapsOnDump(t *testing.T) {
	dir := saveFixture(t)
	var out bytes.Buffer
	require.NoError(t, run("maps", []string{"--dump", dir}, nil, &out))

	assert.Contains(t, out.String(), "0000000000000010-0000000000000016 rw-p          6 [heap]")
	assert.Contains(t, out.String(), "0000000000001000-0000000000001010 rw-p")
}

func TestSearchOnDump(t *testing.T) {
	dir := saveFixture(t)

	var out bytes.Buffer
	require.NoError(t, run("search", []string{"--dump", dir, "AD", "??", "EF"}, nil, &out))
	assert.Contains(t, out.String(), "1 matches for AD ?? EF")
	assert.Contains(t, out.String(), "#0 match at 0x11")
	assert.Contains(t, out.String(), "[ad be ef]")

	out.Reset()
	require.NoError(t, run("search", []string{"--dump", dir, "--mode", "string", "-i", "HELLO"}, nil, &out))
	assert.Contains(t, out.String(), "#0 match at 0x100B")
}

func TestSearchRejectsBadPattern(t *testing.T) {
	dir := saveFixture(t)
	err := run("search", []string{"--dump", dir, "XYZ"}, nil, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestShellSession(t *testing.T) {
	dir := saveFixture(t)
	input := strings.Join([]string{
		"search exact AD ?? EF",
		"write #0 00",
		"write #0 11",
		"snapshots",
		"next",
		"restore 11",
		"writeint 1000 -1",
		"undo",
		"read 10 6",
		"restore 20",
		"bogus",
		"quit",
	}, "\n")

	var out bytes.Buffer
	require.NoError(t, run("shell", []string{"--dump", dir}, strings.NewReader(input), &out))
	text := out.String()

	assert.Contains(t, text, "Wrote 1 bytes at 0x11")
	assert.Regexp(t, `(?m)^0x11\s+AD$`, text)
	assert.Contains(t, text, "0 of 1 results still match")
	assert.Contains(t, text, "Restored 0x11")
	assert.Contains(t, text, "Wrote 8 bytes at 0x1000")
	assert.Contains(t, text, "Restored 2 addresses")
	assert.Contains(t, text, "00000010: de ad be ef ca fe")
	assert.Contains(t, text, "no snapshot")
	assert.Contains(t, text, `unknown command "bogus"`)
}

func TestShellNextWithNewValue(t *testing.T) {
	dir := saveFixture(t)
	input := "search number 0\nnext 5\nquit\n"

	var out bytes.Buffer
	require.NoError(t, run("shell", []string{"--dump", dir}, strings.NewReader(input), &out))
	assert.Contains(t, out.String(), "0 matches for 0")
	assert.Contains(t, out.String(), "0 of 0 results still match 5")
}

func TestWriteRejectsWildcards(t *testing.T) {
	_, err := parseBytes("AA ?? BB")
	assert.Error(t, err)

	data, err := parseBytes("aa bb")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, data)
}

func TestParseAddress(t *testing.T) {
	for in, want := range map[string]uint64{"0x10": 0x10, "7ffd0000": 0x7ffd0000, "10": 0x10} {
		got, err := parseAddress(in)
		require.NoError(t, err)
		assert.Equal(t, want, uint64(got))
	}
	_, err := parseAddress("zz")
	assert.Error(t, err)
}

func TestUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run("frobnicate", nil, nil, &out))
	assert.Contains(t, out.String(), "Usage:")
}

func TestPs(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run("ps", nil, nil, &out))
	assert.True(t, strings.HasPrefix(out.String(), "     PID NAME\n-------- ----"))
}

func TestShellTypedValues(t *testing.T) {
	dir := saveFixture(t)
	input := strings.Join([]string{
		"readval 1000 u8",
		"writeval 1000 u16 0x4142",
		"readval 1000 u16",
		"writeval 1000 f32 1.5",
		"readval 1000 f32",
		"writeval 1000 i8 300",
		"readval 1000 c64",
		"quit",
	}, "\n")

	var out bytes.Buffer
	require.NoError(t, run("shell", []string{"--dump", dir}, strings.NewReader(input), &out))
	text := out.String()

	assert.Contains(t, text, "0x1000 u8 = 112")
	assert.Contains(t, text, "0x1000 u16 = 16706")
	assert.Contains(t, text, "0x1000 f32 = 1.5")
	assert.Contains(t, text, `invalid i8 "300"`)
	assert.Contains(t, text, `unknown type "c64"`)
}

func TestPsColorsNames(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run("ps", []string{"--color"}, nil, &out))
	lines := strings.Split(out.String(), "\n")
	require.Greater(t, len(lines), 2)
	assert.NotContains(t, lines[0], "\x1b[")
	assert.Contains(t, lines[2], "\x1b[")

	a := &app{}
	assert.Equal(t, "plain", a.paint("plain"))
}
