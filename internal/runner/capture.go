package runner

import "os"

// redirectStdio points the process's standard streams at the job log
// for the duration of a user operation. The returned restore function
// must run on every exit path; a panic inside the operation would
// otherwise leave later log lines inside the job log.
func redirectStdio(f *os.File) (restore func()) {
	origOut, origErr := os.Stdout, os.Stderr
	os.Stdout, os.Stderr = f, f
	return func() {
		os.Stdout, os.Stderr = origOut, origErr
	}
}
