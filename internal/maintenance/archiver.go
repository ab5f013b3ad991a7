package maintenance

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"tally/internal/maintenance/interfaces"
	"tally/internal/models"
	"tally/internal/providers"
	"tally/internal/structures"

	json "github.com/goccy/go-json"
)

const archiveExt = ".jsonl.zst"

// Archiver writes expired activity events to zstd-compressed JSON-lines files,
// one file per pruned batch.
type Archiver struct {
	dir        string
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewArchiver(conf *structures.Config, compressor interfaces.CompressorInterface, logger providers.Logger) *Archiver {
	return &Archiver{
		dir:        conf.Activity.ArchiveDir,
		compressor: compressor,
		logger:     logger,
	}
}

// Archive persists events atomically: the batch is written to a temporary file
// which is renamed into place only after a successful sync.
func (a *Archiver) Archive(events []models.ActivityEvent) error {
	if len(events) == 0 {
		return nil
	}
	if a.dir == "" {
		return fmt.Errorf("archive directory not configured")
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range events {
		if err := enc.Encode(&events[i]); err != nil {
			return err
		}
	}
	data, err := a.compressor.Compress(buf.Bytes())
	if err != nil {
		return err
	}

	fileName := filepath.Join(a.dir, fmt.Sprintf("activity-%d-%d%s", events[0].ID, events[len(events)-1].ID, archiveExt))
	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	if _, err = file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	if err = os.Rename(tmpFile, fileName); err != nil {
		return err
	}
	a.logger.Debugf(providers.TypeApp, "Archived %d activity events to %s", len(events), fileName)
	return nil
}

// Load reads back one archive file.
func (a *Archiver) Load(fileName string) ([]models.ActivityEvent, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	raw, err := a.compressor.Decompress(data)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", fileName, err)
	}

	var events []models.ActivityEvent
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e models.ActivityEvent
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", fileName, err)
		}
		events = append(events, e)
	}
	return events, sc.Err()
}

// Files lists archive files in write order, oldest batch first.
func (a *Archiver) Files() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(a.dir, "activity-*"+archiveExt))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return firstID(matches[i]) < firstID(matches[j])
	})
	return matches, nil
}

func firstID(fileName string) int64 {
	var first, last int64
	_, _ = fmt.Sscanf(filepath.Base(fileName), "activity-%d-%d", &first, &last)
	return first
}

// Dump writes every archived event to w as JSON lines, oldest first, and
// returns how many were written.
func (a *Archiver) Dump(w io.Writer) (int, error) {
	files, err := a.Files()
	if err != nil {
		return 0, err
	}

	enc := json.NewEncoder(w)
	written := 0
	for _, f := range files {
		events, err := a.Load(f)
		if err != nil {
			return written, err
		}
		for i := range events {
			if err := enc.Encode(&events[i]); err != nil {
				return written, err
			}
			written++
		}
	}
	return written, nil
}
