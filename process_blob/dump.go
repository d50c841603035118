package process_blob

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"memedit/process"
	"memedit/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/google/uuid"
)

const (
	metadataFile  = "metadata.json"
	memoryMapFile = "process_memory_map.json"
)

var log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "process-dump"))

// Metadata describes a saved dump
type Metadata struct {
	ID      string            `json:"id"`
	PID     process.ProcessID `json:"pid"`
	Name    string            `json:"name"`
	SavedAt time.Time         `json:"saved_at"`
}

type SaveOptions struct {
	Name          string // process name recorded in the metadata
	MaxRegionSize uint64 // regions above this size are skipped, zero keeps all
}

// SaveStats counts what happened to each region during Save
type SaveStats struct {
	Regions            int
	Saved              int
	SkippedNonReadable int
	SkippedTooLarge    int
	ReadErrors         int
	Bytes              uint64
}

func blobFilename(region memory_map.MemoryRegion) string {
	return fmt.Sprintf("blob_0x%x_%d.bin", region.Address, region.Size)
}

// Source is what Save needs from a target
type Source interface {
	process.MemoryReader
	memory_map.RegionQuerier
	GetPID() process.ProcessID
}

// Save writes the address space behind src into dir.
// Every region is listed in the memory map file; only readable regions that
// fit the size limit and read successfully get a blob file.
func Save(src Source, dir string, opts SaveOptions) (SaveStats, error) {
	var stats SaveStats

	if err := os.MkdirAll(dir, 0755); err != nil {
		return stats, fmt.Errorf("failed to create directory: %w", err)
	}

	regions, err := memory_map.Enumerate(src)
	if err != nil {
		log.Warn("region enumeration stopped early: ", err)
	}
	stats.Regions = len(regions)

	name := opts.Name
	if name == "" {
		name = process.UnknownProcessName
	}
	metadata := Metadata{
		ID:      uuid.NewString(),
		PID:     src.GetPID(),
		Name:    name,
		SavedAt: time.Now().UTC(),
	}
	if err := writeJSON(filepath.Join(dir, metadataFile), metadata); err != nil {
		return stats, err
	}
	if err := writeJSON(filepath.Join(dir, memoryMapFile), regions); err != nil {
		return stats, err
	}

	log.Infoln("Saving", len(regions), "regions of process", metadata.PID, "to", dir)

	for _, region := range regions {
		if !region.IsReadable() {
			stats.SkippedNonReadable++
			continue
		}
		if opts.MaxRegionSize > 0 && region.Size > opts.MaxRegionSize {
			log.Infoln("Skipping large region at", fmt.Sprintf("%x", region.Address), "(size:", region.Size/1024/1024, "MB)")
			stats.SkippedTooLarge++
			continue
		}

		data, err := src.ReadMemory(process.ProcessMemoryAddress(region.Address), process.ProcessMemorySize(region.Size))
		if err != nil {
			log.Debugln("Failed to read memory region at", fmt.Sprintf("%x", region.Address), err)
			stats.ReadErrors++
			continue
		}

		if err := os.WriteFile(filepath.Join(dir, blobFilename(region)), data, 0644); err != nil {
			return stats, fmt.Errorf("failed to write blob for region 0x%x: %w", region.Address, err)
		}
		stats.Saved++
		stats.Bytes += uint64(len(data))
	}

	log.Infoln("Process dump saved:", stats.Saved, "regions,", stats.Bytes, "bytes,", stats.ReadErrors, "read errors")
	return stats, nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Load rebuilds a ProcessBlob from a directory written by Save.
// Regions without a blob file stay mapped but unreadable.
func Load(dir string) (*ProcessBlob, Metadata, error) {
	var metadata Metadata
	if err := readJSON(filepath.Join(dir, metadataFile), &metadata); err != nil {
		return nil, metadata, err
	}

	var regions []memory_map.MemoryRegion
	if err := readJSON(filepath.Join(dir, memoryMapFile), &regions); err != nil {
		return nil, metadata, err
	}

	blob := New(metadata.PID, metadata.Name)
	loaded := 0
	for _, region := range regions {
		filename := filepath.Join(dir, blobFilename(region))
		data, err := os.ReadFile(filename)
		if os.IsNotExist(err) {
			data = nil
		} else if err != nil {
			return nil, metadata, fmt.Errorf("failed to read blob %s: %w", filename, err)
		} else {
			loaded++
		}

		if err := blob.AddRegion(region, data); err != nil {
			return nil, metadata, fmt.Errorf("bad region in %s: %w", memoryMapFile, err)
		}
	}

	log.Infoln("Loaded dump", metadata.ID, "of", metadata.Name, "with", loaded, "of", len(regions), "regions")
	return blob, metadata, nil
}
