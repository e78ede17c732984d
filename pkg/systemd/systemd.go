// Package systemd reports service state to the systemd supervisor.
// Outside systemd (NOTIFY_SOCKET unset) every call is a no-op.
package systemd

import "github.com/coreos/go-systemd/v22/daemon"

// Ready reports that startup finished.
func Ready() (bool, error) { return daemon.SdNotify(false, daemon.SdNotifyReady) }

// Stopping reports that shutdown began.
func Stopping() (bool, error) { return daemon.SdNotify(false, daemon.SdNotifyStopping) }

// Status sets the free-form status line shown by systemctl status.
func Status(s string) (bool, error) { return daemon.SdNotify(false, "STATUS="+s) }
