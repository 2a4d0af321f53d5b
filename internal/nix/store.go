package nix

import (
	"context"
	"fmt"
	"strings"
)

// StoreEntry is a fixed-output store path together with the sha256 digest the
// store reports for it. Evaluation imports projects through it so results do
// not depend on where the project happens to live on disk.
type StoreEntry struct {
	Path string
	Hash string
}

// HashPath returns the sha256 digest of a file system tree.
func (c *CLI) HashPath(ctx context.Context, path string) (string, error) {
	return c.hash(ctx, "path", path)
}

// HashFile returns the sha256 digest of a single file's contents.
func (c *CLI) HashFile(ctx context.Context, path string) (string, error) {
	return c.hash(ctx, "file", path)
}

func (c *CLI) hash(ctx context.Context, mode, path string) (string, error) {
	out, err := c.output(ctx, ErrStoreOperation, Command{
		Path: c.nix(),
		Args: []string{"hash", mode, path, "--type", "sha256"},
	})
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return strings.TrimSpace(string(out.Stdout)), nil
}

// QueryHash asks the store for the recorded hash of a store path and returns
// the bare digest.
func (c *CLI) QueryHash(ctx context.Context, storePath string) (string, error) {
	out, err := c.output(ctx, ErrStoreOperation, Command{
		Path: c.nixStore(),
		Args: []string{"--query", storePath, "--hash"},
	})
	if err != nil {
		return "", fmt.Errorf("querying hash of %s: %w", storePath, err)
	}
	return ParseStoreHash(string(out.Stdout)), nil
}

// ParseStoreHash strips the algorithm prefix from "<algo>:<digest>".
func ParseStoreHash(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, ":"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// AddFixed copies path into the store as a recursive fixed-output entry and
// returns its store path and hash. Adding the same content twice yields the
// same entry.
func (c *CLI) AddFixed(ctx context.Context, path string) (StoreEntry, error) {
	c.log().Debug("adding to store", "path", path)
	out, err := c.output(ctx, ErrStoreOperation, Command{
		Path: c.nixStore(),
		Args: []string{"--recursive", "--add-fixed", "sha256", path},
	})
	if err != nil {
		return StoreEntry{}, fmt.Errorf("adding %s to store: %w", path, err)
	}

	storePath := strings.TrimSpace(string(out.Stdout))
	if storePath == "" {
		return StoreEntry{}, fmt.Errorf("%w: nix-store printed no path for %s", ErrStoreOperation, path)
	}
	hash, err := c.QueryHash(ctx, storePath)
	if err != nil {
		return StoreEntry{}, err
	}
	c.log().Debug("added to store", "store_path", storePath, "hash", hash)
	return StoreEntry{Path: storePath, Hash: hash}, nil
}

// Realise builds or substitutes a store path and returns its output paths.
func (c *CLI) Realise(ctx context.Context, storePath string) ([]string, error) {
	out, err := c.output(ctx, ErrStoreOperation, Command{
		Path:       c.nixStore(),
		Args:       []string{"--realise", storePath},
		ShowStderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("realising %s: %w", storePath, err)
	}
	return lines(out.Stdout), nil
}
