// Package registry keeps the client-side project registry: one entry per
// project holding its encryption key and, once issued, its access key.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/envault/envault/internal/crypto/filecrypt"
	"github.com/envault/envault/internal/errs"
)

// Entry is a single registered project. EncryptionKey is generated locally
// and never leaves the machine; AccessKey stays empty until the first
// successful store confirms.
type Entry struct {
	Name          string `json:"name"`
	EncryptionKey []byte `json:"encryption_key"`
	AccessKey     string `json:"access_key,omitempty"`
}

// Registry is a file-backed project registry. Every mutation rewrites the
// whole document atomically (temp file + rename). Access from several
// processes at once is not coordinated.
type Registry struct {
	path string
}

// Open returns a registry bound to path. The file is created lazily on the
// first write.
func Open(path string) *Registry {
	return &Registry{path: path}
}

// Path returns the backing file location.
func (r *Registry) Path() string { return r.path }

func (r *Registry) load() ([]Entry, error) {
	b, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		// Never recreate silently: the document holds the only copy of
		// every encryption key.
		return nil, fmt.Errorf("registry %s is corrupt: %w", r.path, err)
	}
	return entries, nil
}

func (r *Registry) save(entries []Entry) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".registry-*")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), r.path)
}

// GetOrCreate returns the entry for name, creating it with a fresh
// encryption key when the name is seen for the first time. An existing
// entry is returned as is: the key is never regenerated.
func (r *Registry) GetOrCreate(name string) (Entry, error) {
	if err := validateName(name); err != nil {
		return Entry{}, err
	}
	entries, err := r.load()
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.Name == name {
			return e, nil
		}
	}
	key, err := filecrypt.GenerateKey()
	if err != nil {
		return Entry{}, err
	}
	e := Entry{Name: name, EncryptionKey: key}
	if err := r.save(append(entries, e)); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Get returns the entry for name without creating one.
func (r *Registry) Get(name string) (Entry, bool, error) {
	entries, err := r.load()
	if err != nil {
		return Entry{}, false, err
	}
	for _, e := range entries {
		if e.Name == name {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

// SetAccessKey records the server-issued key for an existing entry.
func (r *Registry) SetAccessKey(name, accessKey string) error {
	entries, err := r.load()
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].Name == name {
			entries[i].AccessKey = accessKey
			return r.save(entries)
		}
	}
	return fmt.Errorf("project %q: %w", name, errs.ErrNotFound)
}

// Remove deletes the entry for name. Removing an unknown name is a no-op.
func (r *Registry) Remove(name string) error {
	entries, err := r.load()
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].Name == name {
			return r.save(append(entries[:i], entries[i+1:]...))
		}
	}
	return nil
}

// Names lists registered projects in insertion order.
func (r *Registry) Names() ([]string, error) {
	entries, err := r.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names, nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("validation: empty project name")
	}
	if len(name) > 128 {
		return errors.New("validation: project name too long (max 128 bytes)")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return errors.New("validation: project name contains control characters")
		}
	}
	return nil
}
