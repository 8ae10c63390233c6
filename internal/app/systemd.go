package app

import (
	"github.com/coreos/go-systemd/v22/daemon"

	logx "deadlinebot/pkg/logx"
)

// notifySystemd reports state to the service manager. Outside systemd
// (NOTIFY_SOCKET unset) it is a no-op.
func notifySystemd(log logx.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		log.Debug("sd_notify sent", logx.String("state", state))
	}
}
