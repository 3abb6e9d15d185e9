// Package notify is the side-effect helper the runner calls when a job
// fails. The core only depends on the Notifier contract; the desktop
// implementation shells out to the OS notification facility and treats
// any failure as non-fatal.
package notify

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Notifier posts a user-visible notification.
type Notifier interface {
	Notify(title, message string) error
}

// Func adapts a plain function to the Notifier contract.
type Func func(title, message string) error

// Notify implements Notifier.
func (f Func) Notify(title, message string) error { return f(title, message) }

// Nop returns a Notifier that does nothing.
func Nop() Notifier {
	return Func(func(string, string) error { return nil })
}

// Desktop returns the platform notifier: osascript on macOS, a no-op
// elsewhere.
func Desktop() Notifier {
	if runtime.GOOS != "darwin" {
		return Nop()
	}
	return Func(func(title, message string) error {
		script := fmt.Sprintf("display notification %q with title %q", message, title)
		if err := exec.Command("osascript", "-e", script).Run(); err != nil {
			return fmt.Errorf("notify: osascript: %w", err)
		}
		return nil
	})
}
