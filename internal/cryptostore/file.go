package cryptostore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound indicates the target file is absent. Distinct from
// ErrDecrypt so callers can tell "never written" from "tampered".
var ErrNotFound = errors.New("cryptostore: file not found")

// WriteEncryptedJSON serializes v, encrypts it, and writes it to path,
// creating parent directories with restrictive permissions. The write
// is atomic (tmp + rename) to prevent partial reads.
func WriteEncryptedJSON(path string, v any, masterKey, info string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cryptostore: marshal: %w", err)
	}

	blob, err := Encrypt(data, masterKey, info)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("cryptostore: create directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0600); err != nil {
		return fmt.Errorf("cryptostore: write temp: %w", err)
	}
	return os.Rename(tmp, path)
}

// ReadEncryptedJSON reads, decrypts, and unmarshals path into v.
func ReadEncryptedJSON(path string, v any, masterKey, info string) error {
	blob, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("cryptostore: read file: %w", err)
	}

	data, err := Decrypt(blob, masterKey, info)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("cryptostore: unmarshal: %w", err)
	}
	return nil
}
