package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// FileTable is a table loaded from a YAML file:
//
//	name: trades
//	columns: [sym, price]
//	rows:
//	  - [AAPL, 189.5]
//	  - [MSFT, 411.2]
//
// Watch reloads the file whenever it changes and notifies subscribers.
type FileTable struct {
	path string
	mem  *MemTable
}

type tableFile struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Rows    [][]any  `yaml:"rows"`
}

// LoadFileTable reads the table at path. The table is named after the
// file unless the file sets a name.
func LoadFileTable(path string) (*FileTable, error) {
	def, err := readTableFile(path)
	if err != nil {
		return nil, err
	}
	name := def.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	t := &FileTable{path: abs, mem: NewMemTable(name, def.Columns...)}
	if err := t.mem.Reset(def.Columns, def.Rows); err != nil {
		return nil, err
	}
	return t, nil
}

func readTableFile(path string) (tableFile, error) {
	var def tableFile
	data, err := os.ReadFile(path)
	if err != nil {
		return def, fmt.Errorf("reading table %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &def); err != nil {
		return def, fmt.Errorf("parsing table %s: %w", path, err)
	}
	if len(def.Columns) == 0 {
		return def, fmt.Errorf("table %s: no columns", path)
	}
	return def, nil
}

// Path returns the file the table is loaded from.
func (t *FileTable) Path() string { return t.path }

func (t *FileTable) Name() string       { return t.mem.Name() }
func (t *FileTable) ExportType() string { return ExportType }
func (t *FileTable) Columns() []string  { return t.mem.Columns() }
func (t *FileTable) Rows() int          { return t.mem.Rows() }

func (t *FileTable) Slice(first, last int, columns []string) (Frame, error) {
	return t.mem.Slice(first, last, columns)
}

func (t *FileTable) Subscribe(listener func(Update)) (Subscription, error) {
	return t.mem.Subscribe(listener)
}

// Reload rereads the file and replaces the table contents. On error the
// previous contents are kept.
func (t *FileTable) Reload() error {
	def, err := readTableFile(t.path)
	if err == nil {
		err = t.mem.Reset(def.Columns, def.Rows)
	}
	if err != nil {
		reloads.WithLabelValues("error").Inc()
		return err
	}
	reloads.WithLabelValues("ok").Inc()
	return nil
}

// Watch reloads the table whenever its file is written or replaced.
// It blocks until ctx is cancelled. The directory is watched rather than
// the file so that editors replacing the file by rename are seen.
func (t *FileTable) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(t.path)); err != nil {
		return fmt.Errorf("watching %s: %w", t.path, err)
	}
	slog.Debug("Watching table file", "table", t.Name(), "path", t.path)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != t.path || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := t.Reload(); err != nil {
				slog.Warn("Failed to reload table file", "table", t.Name(), "path", t.path, "error", err)
				continue
			}
			slog.Info("Reloaded table file", "table", t.Name(), "rows", t.Rows())

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Table file watcher error", "path", t.path, "error", err)

		case <-ctx.Done():
			return nil
		}
	}
}
