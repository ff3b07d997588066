// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Heavily inspired by https://github.com/btcsuite/btcd/blob/master/version.go
// Copyright (C) 2015-2017 The Lightning Network Developers

package build

import (
	"fmt"
	"runtime/debug"
	"strings"
)

const (
	// AppMajor defines the major version of this binary.
	AppMajor uint = 0

	// AppMinor defines the minor version of this binary.
	AppMinor uint = 3

	// AppPatch defines the application patch for this binary.
	AppPatch uint = 0
)

// AppPreRelease MUST only contain characters from semanticAlphabet per the
// semantic versioning spec.
var AppPreRelease = "pre"

// Commit may be set at link time with -ldflags "-X ...build.Commit=<id>". It
// takes precedence over the revision recorded by the go toolchain.
var Commit = ""

// semanticAlphabet is the set of characters that are permitted for use in an
// AppPreRelease.
const semanticAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-."

// Version returns the application version as a properly formed string per the
// semantic versioning 2.0.0 spec (http://semver.org/).
func Version() string {
	// Start with the major, minor, and patch versions.
	version := fmt.Sprintf("%d.%d.%d", AppMajor, AppMinor, AppPatch)

	// Append pre-release version if there is one. The hyphen called for
	// by the semantic versioning spec is automatically appended and should
	// not be contained in the pre-release string.
	preRelease := normalizeVerString(AppPreRelease)
	if preRelease != "" {
		version = fmt.Sprintf("%s-%s", version, preRelease)
	}

	return version
}

// SourceCommit returns the commit the binary was built from, or an empty
// string when it is unknown. A working tree with local modifications is
// marked with a ".dirty" suffix.
func SourceCommit() string {
	if Commit != "" {
		return normalizeVerString(Commit)
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}

	var revision, suffix string
	for _, setting := range bi.Settings {
		switch {
		case setting.Key == "vcs.revision":
			revision = setting.Value
		case setting.Key == "vcs.modified" && setting.Value == "true":
			suffix = ".dirty"
		}
	}
	if revision == "" {
		return ""
	}

	const shortLen = 9
	if len(revision) > shortLen {
		revision = revision[:shortLen]
	}
	return revision + suffix
}

// normalizeVerString returns the passed string stripped of all characters
// which are not valid according to the semantic versioning guidelines for
// pre-release strings.
func normalizeVerString(str string) string {
	var result strings.Builder
	for _, r := range str {
		if strings.ContainsRune(semanticAlphabet, r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
