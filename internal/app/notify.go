package app

import (
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog"
)

// notifyReady tells systemd the relay is accepting subscribers. Outside a
// notify unit this is a no-op.
func notifyReady(logger *zerolog.Logger) {
	sdNotify(logger, daemon.SdNotifyReady)
}

func notifyStopping(logger *zerolog.Logger) {
	sdNotify(logger, daemon.SdNotifyStopping)
}

func sdNotify(logger *zerolog.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logger.Warn().Err(err).Str("state", state).Msg("sd_notify failed")
		return
	}
	if sent {
		logger.Debug().Str("state", state).Msg("sd_notify sent")
	}
}
