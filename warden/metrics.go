package warden

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var bansApplied = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_bans_applied",
	Help: "Number of bans propagated to communities",
})

var banFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_ban_failures",
	Help: "Number of ban attempts rejected by the remote API",
})

var identitiesIgnored = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_identities_ignored",
	Help: "Number of ban candidates skipped via the ignore list",
})

var registryWriteRejections = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_registry_write_rejections",
	Help: "Number of registry writes rejected for size or permission reasons",
})

var notificationsSent = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_notifications_sent",
	Help: "Number of notification messages delivered",
})

var notificationsFailed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_notifications_failed",
	Help: "Number of notification messages that failed to send",
})

var runsCompleted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_runs_completed",
	Help: "Number of reconciliation runs completed",
})
