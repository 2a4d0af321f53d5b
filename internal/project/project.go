// Package project turns a user-supplied project reference into a local
// directory registered in the nix store as a fixed-output entry.
package project

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"

	"github.com/nilla-nix/nilla-cli/internal/logging"
	"github.com/nilla-nix/nilla-cli/internal/nix"
)

// Sentinel errors for project resolution.
var (
	// ErrNotFound indicates the reference does not name a local directory.
	ErrNotFound = errors.New("project not found")
	// ErrEntryFileNotFound indicates the project directory has no entry file.
	ErrEntryFileNotFound = errors.New("entry file not found")
)

// Registrar adds a directory to the nix store as a fixed-output entry.
type Registrar interface {
	AddFixed(ctx context.Context, path string) (nix.StoreEntry, error)
}

// Project is a resolved project: its local directory and store entry.
type Project struct {
	Dir   string
	Entry nix.StoreEntry
	// File is the entry file name relative to Dir.
	File string
}

// EntryPath returns the absolute path of the entry file, or
// ErrEntryFileNotFound when it is missing.
func (p Project) EntryPath(fs afero.Fs) (string, error) {
	path := filepath.Join(p.Dir, p.File)
	info, err := fs.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrEntryFileNotFound, path)
	}
	return path, nil
}

// Resolver resolves project references.
type Resolver struct {
	FS        afero.Fs
	Store     Registrar
	EntryFile string
	Logger    hclog.Logger
}

// Resolve locates ref on disk and registers it with the store. An empty
// reference means the current directory; a "path:" prefix is accepted and
// "~" is expanded. Remote references are not supported.
func (r *Resolver) Resolve(ctx context.Context, ref string) (Project, error) {
	dir, err := r.Locate(ref)
	if err != nil {
		return Project{}, err
	}

	log := logging.OrNull(r.Logger)
	log.Debug("resolved project", "ref", ref, "dir", dir)

	entry, err := r.Store.AddFixed(ctx, dir)
	if err != nil {
		return Project{}, fmt.Errorf("registering project %s: %w", dir, err)
	}
	return Project{Dir: dir, Entry: entry, File: r.entryFile()}, nil
}

// Locate maps ref to an existing absolute directory without touching the
// store.
func (r *Resolver) Locate(ref string) (string, error) {
	if ref == "" {
		ref = "."
	}
	if scheme, rest, ok := strings.Cut(ref, ":"); ok {
		if scheme != "path" {
			return "", fmt.Errorf("%w: unsupported reference %q (only local paths are supported)", ErrNotFound, ref)
		}
		ref = rest
	}

	expanded, err := homedir.Expand(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotFound, ref, err)
	}
	dir, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotFound, ref, err)
	}

	ok, err := afero.DirExists(r.FS, dir)
	if err != nil || !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, dir)
	}
	return dir, nil
}

func (r *Resolver) entryFile() string {
	if r.EntryFile == "" {
		return "nilla.nix"
	}
	return r.EntryFile
}
