// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package upgrade

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"syscall"

	"github.com/masterminds/semver"
	"resty.dev/v3"
)

const repoFileName = "repo.json"
const binaryPath = "bin"

// pkgEntry is one published stencil binary. The repository index holds one
// entry per version and platform; binaries are served uncompressed under
// bin/stencil-<version>-<os>-<arch>.
type pkgEntry struct {
	Name    string
	OsArch  string
	Version *semver.Version
	Sha256  string
}

func (p *pkgEntry) fileName() string {
	return fmt.Sprintf("%s-%s-%s", p.Name, p.Version, p.OsArch)
}

type repoData struct {
	Version  int
	Packages []*pkgEntry
}

func currentOsArch() string {
	arch := runtime.GOARCH
	if arch == "amd64" {
		arch = "x8664"
	}
	return runtime.GOOS + "-" + arch
}

// list returns this platform's entries, newest first.
func (r *repoData) list() []*pkgEntry {
	var entries []*pkgEntry
	for _, pkg := range r.Packages {
		if pkg.Name == "stencil" && pkg.OsArch == currentOsArch() {
			entries = append(entries, pkg)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Version.GreaterThan(entries[j].Version)
	})
	return entries
}

// update returns the newest entry strictly newer than the installed version.
func (r *repoData) update(installed *semver.Version) *pkgEntry {
	entries := r.list()
	if len(entries) == 0 || !entries[0].Version.GreaterThan(installed) {
		return nil
	}
	return entries[0]
}

func (r *repoData) entry(version *semver.Version) *pkgEntry {
	for _, pkg := range r.list() {
		if pkg.Version.Equal(version) {
			return pkg
		}
	}
	return nil
}

func fetchRepo(repoURL string) (*repoData, error) {
	client := resty.New()
	defer func() { _ = client.Close() }()

	data := &repoData{}
	resp, err := client.R().
		SetResult(data).
		SetForceResponseContentType("application/json").
		Get(repoURL + "/" + repoFileName)
	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		switch resp.StatusCode() {
		case 404:
			return nil, fmt.Errorf("not found: %s", resp.Request.URL)
		case 403:
			return nil, fmt.Errorf("access denied: %s", resp.Request.URL)
		default:
			return nil, fmt.Errorf("server error %d: %s", resp.StatusCode(), resp.Request.URL)
		}
	}

	return data, nil
}

// install downloads the candidate next to the running binary, verifies its
// digest and swaps it in with a rename so a crash never leaves half a binary.
func install(repoURL string, entry *pkgEntry) error {
	self, err := os.Executable()
	if err != nil {
		return err
	}

	staging := self + ".next"

	client := resty.New()
	defer func() { _ = client.Close() }()

	resp, err := client.R().
		SetOutputFileName(staging).
		Get(repoURL + "/" + binaryPath + "/" + entry.fileName())
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("server error %d: %s", resp.StatusCode(), resp.Request.URL)
	}

	if err := verifyDigest(staging, entry.Sha256); err != nil {
		_ = os.Remove(staging)
		return err
	}

	if err := os.Chmod(staging, 0o755); err != nil {
		_ = os.Remove(staging)
		return err
	}

	return os.Rename(staging, self)
}

func verifyDigest(path string, expected string) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}
	//nolint:errcheck
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}

	actual := hex.EncodeToString(h.Sum(nil))
	if actual != expected {
		return fmt.Errorf("digest mismatch: expected %s, got %s", expected, actual)
	}
	return nil
}

func isPrivilegedUser() bool {
	return os.Geteuid() == 0
}

func invokeSelfWithSudo(args ...string) error {
	self, err := os.Executable()
	if err != nil {
		return err
	}

	sudo, err := exec.LookPath("sudo")
	if err != nil {
		return err
	}

	args = append([]string{" ", self}, args...)

	return syscall.Exec(sudo, args, os.Environ())
}
