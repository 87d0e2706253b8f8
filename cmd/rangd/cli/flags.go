package cli

import (
	"time"

	"github.com/jnovack/flag"

	"github.com/rangd/rangd/internal/grouped_flags"
)

var Flags struct {
	HttpHost                  string
	HttpPort                  string
	HttpSock                  string
	Basepath                  string
	ResourceDir               string
	MaxConcurrentTransfers    int64
	RejectWithTooManyRequests bool
	RetryAfter                time.Duration
	CacheControl              string
	IdleTimeout               time.Duration
	SweepInterval             time.Duration
	NetworkTimeout            time.Duration
	ShutdownTimeout           time.Duration
	ShowGreeting              bool
	ExposeMetrics             bool
	MetricsPath               string
	ExposePprof               bool
	PprofPath                 string
	PprofBlockProfileRate     int
	PprofMutexProfileRate     int
	ShowVersion               bool
	VerboseOutput             bool
	LogFormat                 string
}

func ParseFlags() {
	fs := grouped_flags.NewFlagGroupSet(flag.ExitOnError)

	fs.AddGroup("Listening options", func(f *flag.FlagSet) {
		f.StringVar(&Flags.HttpHost, "host", "0.0.0.0", "Host to bind HTTP server to")
		f.StringVar(&Flags.HttpPort, "port", "8080", "Port to bind HTTP server to")
		f.StringVar(&Flags.HttpSock, "unix-sock", "", "If set, will listen to a UNIX socket at this location instead of a TCP socket")
		f.StringVar(&Flags.Basepath, "base-path", "/media/", "Basepath of the HTTP server")
	})

	fs.AddGroup("Resource storage options", func(f *flag.FlagSet) {
		f.StringVar(&Flags.ResourceDir, "resource-dir", "./data", "Directory to serve resources from")
		f.StringVar(&Flags.CacheControl, "cache-control", "", "Cache-Control header value attached to cacheable responses. Leave empty for the default of public, max-age=31536000.")
	})

	fs.AddGroup("Transfer options", func(f *flag.FlagSet) {
		f.Int64Var(&Flags.MaxConcurrentTransfers, "max-concurrent-transfers", 100, "Maximum number of simultaneously streaming transfers. Requests beyond this ceiling are rejected immediately instead of being queued.")
		f.BoolVar(&Flags.RejectWithTooManyRequests, "reject-with-429", false, "Reject transfers over the concurrency ceiling with 429 Too Many Requests instead of 503 Service Unavailable")
		f.DurationVar(&Flags.RetryAfter, "retry-after", 3*time.Second, "Value of the Retry-After header attached to rejected transfers")
	})

	fs.AddGroup("Timeout options", func(f *flag.FlagSet) {
		f.DurationVar(&Flags.NetworkTimeout, "network-timeout", 60*time.Second, "Timeout for reading the request and writing the response. If the server does not move data for this duration, it will consider the connection dead.")
		f.DurationVar(&Flags.IdleTimeout, "idle-timeout", 60*time.Second, "Cutoff after which a transfer without forward progress is swept and its slot reclaimed")
		f.DurationVar(&Flags.SweepInterval, "sweep-interval", 30*time.Second, "Interval at which stalled transfers are checked for sweeping")
		f.DurationVar(&Flags.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "Timeout for closing connections gracefully during shutdown. After the timeout, the server will exit regardless of any open connection.")
	})

	fs.AddGroup("Monitoring, profiling, logging options", func(f *flag.FlagSet) {
		f.BoolVar(&Flags.ExposeMetrics, "expose-metrics", true, "Expose metrics about server usage")
		f.StringVar(&Flags.MetricsPath, "metrics-path", "/metrics", "Path under which the metrics endpoint will be accessible")
		f.BoolVar(&Flags.ExposePprof, "expose-pprof", false, "Expose the pprof interface over HTTP for profiling the server")
		f.StringVar(&Flags.PprofPath, "pprof-path", "/debug/pprof/", "Path under which the pprof endpoint will be accessible")
		f.IntVar(&Flags.PprofBlockProfileRate, "pprof-block-profile-rate", 0, "Fraction of goroutine blocking events that are reported in the blocking profile")
		f.IntVar(&Flags.PprofMutexProfileRate, "pprof-mutex-profile-rate", 0, "Fraction of mutex contention events that are reported in the mutex profile")
		f.BoolVar(&Flags.ShowGreeting, "show-greeting", true, "Show the greeting message for GET requests to the root path")
		f.BoolVar(&Flags.ShowVersion, "version", false, "Print version information")
		f.BoolVar(&Flags.VerboseOutput, "verbose", true, "Enable verbose logging output")
		f.StringVar(&Flags.LogFormat, "log-format", "text", "Logging format (text or json)")
	})

	fs.Parse()

	SetupStructuredLogger()
}
