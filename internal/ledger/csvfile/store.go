// Package csvfile keeps the ledger in a single human-readable CSV file.
package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"bookkeeper/internal/core"
	"bookkeeper/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

const utf8BOM = "\ufeff"

// Store appends records to a CSV file. The header is written when the file
// does not exist yet; an existing file is never inspected, so a file whose
// first line was removed is appended to as is.
type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Append encodes the row (and the header for a new file) into one buffer
// and issues a single O_APPEND write, so a row is never split.
func (s *Store) Append(ctx context.Context, r core.TransactionRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	_, statErr := os.Stat(s.path)
	fresh := errors.Is(statErr, os.ErrNotExist)
	if statErr != nil && !fresh {
		return "", core.IOError(core.OpAppend, statErr)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if fresh {
		if dir := filepath.Dir(s.path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", core.IOError(core.OpAppend, err)
			}
		}
		if err := w.Write(core.Header); err != nil {
			return "", core.IOError(core.OpAppend, err)
		}
	}
	if err := w.Write(r.Fields()); err != nil {
		return "", core.IOError(core.OpAppend, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", core.IOError(core.OpAppend, err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", core.IOError(core.OpAppend, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return "", core.IOError(core.OpAppend, err)
	}
	if err := f.Close(); err != nil {
		return "", core.IOError(core.OpAppend, err)
	}
	return s.path, nil
}

// LoadAll reads the whole file. The first line is the header; a UTF-8 BOM in
// front of it is ignored. Short lines yield rows without the missing columns.
func (s *Store) LoadAll(ctx context.Context) ([]core.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, core.NotFoundError(core.OpLoad, filepath.Base(s.path))
		}
		return nil, readError(err)
	}
	defer f.Close()
	return readRows(f)
}

func readRows(r io.Reader) ([]core.Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return []core.Row{}, nil
	}
	if err != nil {
		return nil, readError(err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	rows := []core.Row{}
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, readError(err)
		}
		rows = append(rows, core.RowFromFields(header, fields))
	}
	return rows, nil
}

func readError(err error) error {
	return &core.Error{
		Kind:    core.KindIOFailure,
		Op:      core.OpLoad,
		Message: fmt.Sprintf("Error reading database: %v", err),
		Err:     err,
	}
}
