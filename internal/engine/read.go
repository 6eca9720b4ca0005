package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// DefaultMaxFileBytes is the default size cap for scanned files.
const DefaultMaxFileBytes int64 = 4 << 20

// binarySniffBytes is how much of a file is checked for NUL bytes.
const binarySniffBytes = 8 << 10

var (
	// ErrFileTooLarge is wrapped when a file exceeds the size cap.
	ErrFileTooLarge = errors.New("file exceeds size limit")

	// ErrBinaryFile is wrapped when a file looks binary.
	ErrBinaryFile = errors.New("binary file")
)

// FileReadError reports a file that could not be scanned. The run goes on
// without it.
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

// MarshalJSON encodes the error message as a string.
func (e *FileReadError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Path  string `json:"path"`
		Error string `json:"error"`
	}{e.Path, e.Err.Error()})
}

// readFile reads at most limit bytes and rejects larger or binary files.
func readFile(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path) //nolint:gosec // Paths come from the resolver
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("is a directory")
	}
	if info.Size() > limit {
		return nil, fmt.Errorf("%w (%d > %d bytes)", ErrFileTooLarge, info.Size(), limit)
	}

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (> %d bytes)", ErrFileTooLarge, limit)
	}

	sniff := data
	if len(sniff) > binarySniffBytes {
		sniff = sniff[:binarySniffBytes]
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return nil, ErrBinaryFile
	}
	return data, nil
}
