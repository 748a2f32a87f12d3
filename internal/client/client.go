package client

import (
	"context"
	"fmt"
	"os"

	"github.com/envault/envault/internal/crypto/filecrypt"
	"github.com/envault/envault/internal/errs"
	"github.com/envault/envault/internal/registry"
)

// Client drives the push and pull workflow for local projects. All remote
// calls happen before the registry is touched, so a failed operation never
// leaves the local state ahead of the server.
type Client struct {
	reg    *registry.Registry
	remote Remote
}

// NewClient wires a registry and a Remote into a Client.
func NewClient(reg *registry.Registry, remote Remote) *Client {
	return &Client{reg: reg, remote: remote}
}

// Push encrypts the file at path and stores it remotely under projectID.
// The encryption key is created locally on first push and never leaves
// the machine. The access key issued by the server is recorded only after
// the store succeeded, so a failed push can simply be retried.
func (c *Client) Push(ctx context.Context, projectID, path string) error {
	plaintext, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	entry, err := c.reg.GetOrCreate(projectID)
	if err != nil {
		return err
	}
	blob, err := filecrypt.Encrypt(entry.EncryptionKey, plaintext)
	if err != nil {
		return fmt.Errorf("encrypt %s: %w", path, err)
	}
	accessKey, err := c.remote.Store(ctx, projectID, blob)
	if err != nil {
		return err
	}
	return c.reg.SetAccessKey(projectID, accessKey)
}

// Pull retrieves the remote ciphertext for projectID, decrypts it and
// writes the plaintext to path. An existing file is only replaced when
// force is set.
func (c *Client) Pull(ctx context.Context, projectID, path string, force bool) error {
	entry, err := c.lookup(projectID)
	if err != nil {
		return err
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
	}
	blob, err := c.remote.Retrieve(ctx, entry.AccessKey)
	if err != nil {
		return err
	}
	plaintext, err := filecrypt.Decrypt(entry.EncryptionKey, blob)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, plaintext, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Update re-encrypts the file at path and replaces the remote ciphertext
// for projectID.
func (c *Client) Update(ctx context.Context, projectID, path string) error {
	entry, err := c.lookup(projectID)
	if err != nil {
		return err
	}
	plaintext, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	blob, err := filecrypt.Encrypt(entry.EncryptionKey, plaintext)
	if err != nil {
		return fmt.Errorf("encrypt %s: %w", path, err)
	}
	return c.remote.Update(ctx, entry.AccessKey, projectID, blob)
}

// Delete removes the remote record and, once the server confirmed, drops
// the local registry entry together with its keys.
func (c *Client) Delete(ctx context.Context, projectID string) error {
	entry, err := c.lookup(projectID)
	if err != nil {
		return err
	}
	if err := c.remote.Delete(ctx, entry.AccessKey); err != nil {
		return err
	}
	return c.reg.Remove(projectID)
}

// Projects lists registered project names in registration order.
func (c *Client) Projects() ([]string, error) {
	return c.reg.Names()
}

// lookup resolves a registered project that already holds an access key.
func (c *Client) lookup(projectID string) (registry.Entry, error) {
	entry, ok, err := c.reg.Get(projectID)
	if err != nil {
		return registry.Entry{}, err
	}
	if !ok {
		return registry.Entry{}, fmt.Errorf("project %q is not registered: %w", projectID, errs.ErrNoAccessKey)
	}
	if entry.AccessKey == "" {
		return registry.Entry{}, fmt.Errorf("project %q was never pushed: %w", projectID, errs.ErrNoAccessKey)
	}
	return entry, nil
}
