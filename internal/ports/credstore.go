/*
 * Copyright 2026 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package ports

import (
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// ApDictName is the directory (dictionary, in the original PDDB's
// terminology) under which known-AP passphrases are stored, one file per
// SSID.
const ApDictName = "ap_list"

// FileCredentialStore is a CredentialStore backed by an afero.Fs, so tests
// can swap in afero.NewMemMapFs() exactly as ap.wifid's and ap.networkd's
// own *_test.go files do for template and config I/O.
type FileCredentialStore struct {
	fs      afero.Fs
	rootDir string
	mounted func() bool
}

// NewFileCredentialStore builds a store rooted at rootDir/ApDictName. The
// mounted callback reports whether the backing filesystem is considered
// mounted yet (e.g. a PDDB-style store that isn't available until some
// point after boot); pass nil to always report mounted.
func NewFileCredentialStore(fs afero.Fs, rootDir string, mounted func() bool) *FileCredentialStore {
	return &FileCredentialStore{fs: fs, rootDir: rootDir, mounted: mounted}
}

// IsMounted reports whether the credential store is ready to be read.
func (s *FileCredentialStore) IsMounted() bool {
	if s.mounted == nil {
		return true
	}
	return s.mounted()
}

func (s *FileCredentialStore) dictDir() string {
	return filepath.Join(s.rootDir, ApDictName)
}

// KnownSSIDs lists the SSIDs with stored credentials, re-read fresh on
// every call since the store may be mutated out of band.
func (s *FileCredentialStore) KnownSSIDs() (map[string]struct{}, error) {
	entries, err := afero.ReadDir(s.fs, s.dictDir())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, errors.Wrap(err, "listing known SSIDs")
	}

	known := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			known[e.Name()] = struct{}{}
		}
	}
	return known, nil
}

// OpenPassphrase opens the stored passphrase for ssid. The caller is
// responsible for bounding read length to WF200PassMaxLen and validating
// UTF-8; a helper, ReadPassphrase, does both.
func (s *FileCredentialStore) OpenPassphrase(ssid string) (io.ReadCloser, error) {
	f, err := s.fs.Open(filepath.Join(s.dictDir(), ssid))
	if err != nil {
		return nil, errors.Wrapf(ErrCredentialMissing, "opening passphrase for %q: %v", ssid, err)
	}
	return f, nil
}

// WritePassphrase stores pass for ssid, creating the dictionary directory
// as needed. Not part of the CredentialStore interface C5 consumes —
// provisioning new networks is out of scope for this core — but tests and
// any out-of-band provisioning tool need a way to seed the store.
func (s *FileCredentialStore) WritePassphrase(ssid, pass string) error {
	if err := s.fs.MkdirAll(s.dictDir(), 0700); err != nil {
		return errors.Wrap(err, "creating credential dictionary")
	}
	return afero.WriteFile(s.fs, filepath.Join(s.dictDir(), ssid), []byte(pass), 0600)
}

// ReadPassphrase reads at most WF200PassMaxLen bytes from store for ssid
// and validates the result as UTF-8, mapping any failure to
// ErrCredentialMissing so the selector can skip the candidate and try the
// next one in the same poll.
func ReadPassphrase(store CredentialStore, ssid string) (string, error) {
	r, err := store.OpenPassphrase(ssid)
	if err != nil {
		return "", err
	}
	defer r.Close()

	buf := make([]byte, WF200PassMaxLen)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", errors.Wrapf(ErrCredentialMissing, "reading passphrase for %q: %v", ssid, err)
	}
	// Guard against a password file larger than the bound: read one more
	// byte and reject if present, rather than silently truncating.
	if n == len(buf) {
		if extra, _ := ioutil.ReadAll(io.LimitReader(r, 1)); len(extra) > 0 {
			return "", errors.Wrapf(ErrCredentialMissing, "passphrase for %q exceeds %d bytes", ssid, WF200PassMaxLen)
		}
	}

	pw := buf[:n]
	if !utf8.Valid(pw) {
		return "", errors.Wrapf(ErrCredentialMissing, "passphrase for %q is not valid UTF-8", ssid)
	}
	return string(pw), nil
}
