// Package storage keeps uploaded payment proofs and rendered ticket
// artifacts on the local filesystem under a single upload root.  Stored
// references are relative paths ("qr_codes/MIRAI....png") so the root can
// move without rewriting the database.
package storage

import (
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
)

// Artifact kinds, also used as the first path segment of a reference.
const (
    KindPaymentProofs = "payment_proofs"
    KindQRCodes       = "qr_codes"
)

// ErrNotFound is returned by Resolve for unknown kinds or missing files.
var ErrNotFound = errors.New("file not found")

// Root is an upload directory.
type Root struct {
    dir string
}

// NewRoot returns a Root at dir, creating the kind sub-directories.
func NewRoot(dir string) (*Root, error) {
    for _, k := range []string{KindPaymentProofs, KindQRCodes} {
        if err := os.MkdirAll(filepath.Join(dir, k), 0o755); err != nil {
            return nil, fmt.Errorf("create %s dir: %w", k, err)
        }
    }
    return &Root{dir: dir}, nil
}

// Dir returns the absolute or relative directory backing r.
func (r *Root) Dir() string { return r.dir }

// Resolve maps a (kind, file) pair from a URL onto a path inside the root.
// Anything that would escape the kind directory is rejected.
func (r *Root) Resolve(kind, file string) (string, error) {
    if kind != KindPaymentProofs && kind != KindQRCodes {
        return "", ErrNotFound
    }
    if file == "" || file != filepath.Base(file) || strings.HasPrefix(file, ".") || strings.ContainsAny(file, `/\`) {
        return "", ErrNotFound
    }
    p := filepath.Join(r.dir, kind, file)
    st, err := os.Stat(p)
    if err != nil || st.IsDir() {
        return "", ErrNotFound
    }
    return p, nil
}

// writeFile writes data to ref atomically: a temp file in the same
// directory is renamed into place so readers never see a partial file.
func (r *Root) writeFile(ref string, data []byte) error {
    dst := filepath.Join(r.dir, filepath.FromSlash(ref))
    tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
    if err != nil {
        return err
    }
    name := tmp.Name()
    if _, err := tmp.Write(data); err != nil {
        tmp.Close()
        os.Remove(name)
        return err
    }
    if err := tmp.Close(); err != nil {
        os.Remove(name)
        return err
    }
    if err := os.Chmod(name, 0o644); err != nil {
        os.Remove(name)
        return err
    }
    return os.Rename(name, dst)
}

// Remove deletes the file behind ref.  Missing files are not an error.
func (r *Root) Remove(ref string) error {
    if ref == "" {
        return nil
    }
    err := os.Remove(filepath.Join(r.dir, filepath.FromSlash(ref)))
    if err != nil && !errors.Is(err, os.ErrNotExist) {
        return err
    }
    return nil
}
