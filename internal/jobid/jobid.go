// Package jobid holds the identifier rules shared by the state store,
// the lock manager, the registry, and the launchd adapter: what a valid
// job id looks like, and how a bare id and a namespace combine into a
// qualified id. Keeping both rules in one place is what guarantees the
// adapters all agree on names character-for-character.
package jobid

import (
	"errors"
	"fmt"
	"strings"
)

// MaxLen is the longest accepted job id.
const MaxLen = 100

// Validate checks a bare job id against the naming rules: 1–100
// characters, first character alphanumeric or underscore, remainder
// alphanumeric, underscore, or hyphen. Dots are called out separately
// because the launchd label scheme depends on ids being dot-free.
func Validate(id string) error {
	if id == "" {
		return errors.New("job id must be a non-empty string")
	}
	if len(id) > MaxLen {
		return fmt.Errorf("job id must be %d characters or fewer", MaxLen)
	}
	if strings.Contains(id, ".") {
		return errors.New("job id cannot contain dots")
	}
	if !isIDStart(id[0]) {
		return errors.New("job id must start with a letter, digit, or underscore")
	}
	for i := 1; i < len(id); i++ {
		if !isIDChar(id[i]) {
			return fmt.Errorf("job id contains invalid character %q", id[i])
		}
	}
	return nil
}

// ValidateNamespace applies the same character rules to a namespace.
// An empty namespace is valid: it means the job is unnamespaced.
func ValidateNamespace(ns string) error {
	if ns == "" {
		return nil
	}
	if err := Validate(ns); err != nil {
		return fmt.Errorf("namespace %q: %w", ns, err)
	}
	return nil
}

func isIDStart(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

func isIDChar(c byte) bool {
	return isIDStart(c) || c == '-'
}

// Qualify combines a namespace and a bare id into the qualified form
// used by every persistence layer: "ns/id", or the bare id when the
// namespace is empty.
func Qualify(id, namespace string) string {
	if namespace == "" {
		return id
	}
	return namespace + "/" + id
}

// Parse splits a qualified id back into (namespace, id). A bare id
// yields an empty namespace.
func Parse(qualifiedID string) (namespace, id string) {
	if idx := strings.IndexByte(qualifiedID, '/'); idx >= 0 {
		return qualifiedID[:idx], qualifiedID[idx+1:]
	}
	return "", qualifiedID
}
