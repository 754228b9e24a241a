package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"anihub/pkg/models"
)

// DefaultFile is where the export binary writes when no path is given.
const DefaultFile = "anime.csv"

// WriteCSV writes the header row followed by one row per record.
func WriteCSV(w io.Writer, records []models.MediaRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, m := range records {
		if err := cw.Write(Row(m)); err != nil {
			return fmt.Errorf("write row for id %d: %w", m.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile creates outPath (and its directory) and writes records to it.
func WriteFile(outPath string, records []models.MediaRecord) error {
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}

	if err := WriteCSV(f, records); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
