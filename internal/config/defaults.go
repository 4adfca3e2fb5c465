package config

const (
	defaultStagingDir    = "~/.local/share/callpipe/staging"
	defaultTranscriptDir = "~/.local/share/callpipe/transcripts"
	defaultQueueDir      = "~/.local/share/callpipe/queue"
	defaultLogDir        = "~/.local/share/callpipe/logs"

	defaultTelephonyTimeout   = 30
	defaultTranscriberTimeout = 30
	defaultTranscriberLang    = "en-US"

	defaultLookbackHours   = 24
	defaultIngestInterval  = 300
	defaultFuzzyWindowSecs = 5.0

	defaultWorkers            = 2
	defaultClaimLimit         = 5
	defaultMaxAttempts        = 5
	defaultPollInterval       = 5
	defaultMaxWait            = 600
	defaultPollFailureLimit   = 3
	defaultRatePerMinute      = 12.0
	defaultRateBurst          = 1
	defaultBackoffInitial     = 5
	defaultBackoffMax         = 60
	defaultIdleWait           = 10
	defaultHeartbeatInterval  = 15
	defaultStaleClaimTimeout  = 900
	defaultErrorRetryInterval = 15

	defaultWatchdogInterval = 60
	defaultStallTimeout     = 120

	defaultLogFormat = ""
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir:    defaultStagingDir,
			TranscriptDir: defaultTranscriptDir,
			QueueDir:      defaultQueueDir,
			LogDir:        defaultLogDir,
		},
		Telephony: Telephony{
			RequestTimeout: defaultTelephonyTimeout,
		},
		Transcriber: Transcriber{
			RequestTimeout: defaultTranscriberTimeout,
			Language:       defaultTranscriberLang,
		},
		Ingest: Ingest{
			LookbackHours:   defaultLookbackHours,
			Interval:        defaultIngestInterval,
			FuzzyWindowSecs: defaultFuzzyWindowSecs,
		},
		Coordinator: Coordinator{
			Workers:            defaultWorkers,
			ClaimLimit:         defaultClaimLimit,
			MaxAttempts:        defaultMaxAttempts,
			PollInterval:       defaultPollInterval,
			MaxWait:            defaultMaxWait,
			PollFailureLimit:   defaultPollFailureLimit,
			RatePerMinute:      defaultRatePerMinute,
			RateBurst:          defaultRateBurst,
			BackoffInitial:     defaultBackoffInitial,
			BackoffMax:         defaultBackoffMax,
			IdleWait:           defaultIdleWait,
			HeartbeatInterval:  defaultHeartbeatInterval,
			StaleClaimTimeout:  defaultStaleClaimTimeout,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Fanout: Fanout{
			Triggers: []string{"insights", "crm-sync"},
		},
		Watchdog: Watchdog{
			Interval:     defaultWatchdogInterval,
			StallTimeout: defaultStallTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
