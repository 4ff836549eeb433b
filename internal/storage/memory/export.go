// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OCAP2/dockyard/internal/storage"
	v1 "github.com/OCAP2/dockyard/internal/storage/memory/export/v1"
)

// exportJSON writes the session data to a (optionally gzipped) JSON file.
// Caller must hold the write lock.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	outputPath := filepath.Join(b.cfg.OutputDir, b.exportFilename())

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	b.lastExportMeta = storage.UploadMetadata{
		SessionName: b.session.Name,
		SessionUUID: b.session.UUID,
		Duration:    b.endTime.Sub(b.session.StartTime).Seconds(),
		ModuleCount: len(b.order),
		EventCount:  len(b.events),
	}
	return nil
}

func (b *Backend) exportFilename() string {
	name := b.session.Name
	if name == "" {
		name = "session"
	}
	name = strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(name)
	timestamp := b.session.StartTime.Format("20060102_150405")

	if b.cfg.CompressOutput {
		return fmt.Sprintf("%s_%s.json.gz", name, timestamp)
	}
	return fmt.Sprintf("%s_%s.json", name, timestamp)
}

func (b *Backend) buildExport() v1.Export {
	return v1.Build(&v1.SessionData{
		Session:       b.session,
		StationName:   b.stationName,
		EndTime:       b.endTime,
		Modules:       b.order,
		Events:        b.events,
		Topology:      b.topology,
		Notifications: b.notifications,
	})
}

func writeJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
