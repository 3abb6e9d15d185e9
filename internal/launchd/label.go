// Package launchd translates normalized schedules into launchd plist
// files and manages their lifecycle: install, uninstall, orphan
// cleanup, and the run-at-load wake-check trigger. The install contract
// is byte-oriented: identical bytes on disk mean nothing to do.
package launchd

import "strings"

const (
	// labelPrefix is the reverse-DNS prefix every configuration owned
	// by this tool carries.
	labelPrefix = "com.cron-burgundy."

	// jobLabelPrefix prefixes per-job configurations.
	jobLabelPrefix = labelPrefix + "job."

	// WakeCheckLabel owns the run-at-load wake-check configuration.
	WakeCheckLabel = labelPrefix + "wakecheck"
)

// JobLabel derives the stable launchd label for a job. Ids may not
// contain dots (enforced at validation), so the first dot after the
// prefix unambiguously separates namespace from id.
func JobLabel(namespace, id string) string {
	if namespace == "" {
		return jobLabelPrefix + id
	}
	return jobLabelPrefix + namespace + "." + id
}

// PlistFilename returns the on-disk filename for a label.
func PlistFilename(label string) string {
	return label + ".plist"
}

// ParsePlistFilename recovers (namespace, id) from a job plist
// filename. Non-job files owned by this tool (the wake check) and
// foreign files return ok=false.
func ParsePlistFilename(name string) (namespace, id string, ok bool) {
	if !strings.HasPrefix(name, jobLabelPrefix) || !strings.HasSuffix(name, ".plist") {
		return "", "", false
	}
	body := strings.TrimSuffix(strings.TrimPrefix(name, jobLabelPrefix), ".plist")
	if body == "" {
		return "", "", false
	}
	if idx := strings.IndexByte(body, '.'); idx >= 0 {
		ns, id := body[:idx], body[idx+1:]
		if ns == "" || id == "" {
			return "", "", false
		}
		return ns, id, true
	}
	return "", body, true
}

// IsOwnedPlist reports whether a filename belongs to this tool,
// including the wake-check configuration.
func IsOwnedPlist(name string) bool {
	return strings.HasPrefix(name, labelPrefix) && strings.HasSuffix(name, ".plist")
}
