package observability

import "github.com/prometheus/client_golang/prometheus"

// Outcome label values shared by the pipeline counters.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	// RunsStarted counts escalation runs, one per observed hijack key.
	RunsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hijack_runs_started_total",
		Help: "Escalation runs started.",
	})

	// PushSends counts push broadcasts by result (ok|error|disabled).
	PushSends = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "push_sends_total",
		Help: "Push notification broadcasts by result.",
	}, []string{"result"})

	// SMSSubmissions counts bulk SMS requests by result (ok|error).
	SMSSubmissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sms_submissions_total",
		Help: "Bulk SMS submissions by result.",
	}, []string{"result"})

	// SMSAcceptances counts per-number acceptance answers by status
	// (accepted|rejected).
	SMSAcceptances = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sms_acceptances_total",
		Help: "SMS acceptance answers by status.",
	}, []string{"status"})

	// SMSDLRUpdates counts tracking entries changed by delivery reports.
	SMSDLRUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sms_dlr_updates_total",
		Help: "Tracking entries updated from delivery reports.",
	})

	// FeedPolls counts hijack feed queries by result (ok|error).
	FeedPolls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_polls_total",
		Help: "Hijack feed polls by result.",
	}, []string{"result"})

	// EntriesPurged counts tracking entries removed by the retention sweep.
	EntriesPurged = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracking_entries_purged_total",
		Help: "Tracking entries deleted by the retention sweep.",
	})
)

func init() {
	prometheus.MustRegister(
		RunsStarted, PushSends, SMSSubmissions, SMSAcceptances,
		SMSDLRUpdates, FeedPolls, EntriesPurged,
	)
}
