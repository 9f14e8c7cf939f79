//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package triple

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/markkurossi/beaver/ring"
)

var (
	// ErrFormat is returned for malformed triple files.
	ErrFormat = errors.New("triple: invalid triple file")

	header = []string{"a", "b", "c"}
)

// WriteCSV writes the store's triples to out. The output has the
// header row "a,b,c" followed by one row of decimal values per triple
// in generation order.
func WriteCSV(out io.Writer, s *Store) error {
	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, t := range s.triples {
		err := w.Write([]string{
			strconv.FormatUint(t.A, 10),
			strconv.FormatUint(t.B, 10),
			strconv.FormatUint(t.C, 10),
		})
		if err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadCSV reads triples written by WriteCSV. All values must be
// canonical elements of the ring r.
func ReadCSV(in io.Reader, r ring.Ring) (*Store, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = len(header)
	reader.ReuseRecord = true

	row, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: missing header", ErrFormat)
		}
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	for i, col := range header {
		if row[i] != col {
			return nil, fmt.Errorf("%w: invalid header %q", ErrFormat, row)
		}
	}

	s := NewStore()
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		var values [3]uint64
		for i, field := range row {
			v, err := strconv.ParseUint(field, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: %v",
					ErrFormat, s.Len()+1, err)
			}
			if v >= r.Modulus() {
				return nil, fmt.Errorf("%w: row %d: value %d not in %v",
					ErrFormat, s.Len()+1, v, r)
			}
			values[i] = v
		}
		s.Append(Triple{
			A: values[0],
			B: values[1],
			C: values[2],
		})
	}
	return s, nil
}

// Save writes the store to the file path. The indices of consumed
// triples are written to the consumption log UsedPath(path); a stale
// log is removed if no triple is consumed.
func Save(path string, s *Store) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, s); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return saveUsed(path, s)
}

// Load reads a store from the file path. Triples listed in the
// consumption log UsedPath(path) are marked consumed.
func Load(path string, r ring.Ring) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := ReadCSV(f, r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := loadUsed(path, s); err != nil {
		return nil, err
	}
	return s, nil
}

// UsedPath returns the path of the consumption log of the triple file
// path. The log holds one decimal triple index per line.
func UsedPath(path string) string {
	return path + ".used"
}

// RecordUsed appends index to the consumption log of the triple file
// path and syncs the log to stable storage. Callers record a triple
// before using it so that a crash never leaves a used triple
// unrecorded.
func RecordUsed(path string, index int) error {
	if index < 0 {
		return fmt.Errorf("%w: %d", ErrIndex, index)
	}
	f, err := os.OpenFile(UsedPath(path),
		os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f, "%d\n", index); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func saveUsed(path string, s *Store) error {
	used := UsedPath(path)

	var indices []int
	for i, c := range s.consumed {
		if c {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		err := os.Remove(used)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}

	f, err := os.Create(used)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, i := range indices {
		fmt.Fprintf(w, "%d\n", i)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func loadUsed(path string, s *Store) error {
	used := UsedPath(path)

	f, err := os.Open(used)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		i, err := strconv.ParseUint(scanner.Text(), 10, 64)
		if err != nil {
			return fmt.Errorf("%s:%d: %w: %v", used, line, ErrFormat, err)
		}
		if i >= uint64(s.Len()) {
			return fmt.Errorf("%s:%d: %w: index %d not in [0, %d)",
				used, line, ErrFormat, i, s.Len())
		}
		s.consumed[i] = true
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%s: %w", used, err)
	}
	return nil
}
