package sigdex

import (
	"log/slog"

	"github.com/hupe1980/sigdex/config"
	"github.com/hupe1980/sigdex/filemanager"
)

type options struct {
	logger                 *Logger
	metricsCollector       MetricsCollector
	shardDefinition        *config.ShardDefinition
	fileManager            filemanager.FileManager
	trackFrequencies       bool
	truncateBelowFrequency float64
}

// Option configures Ingestor construction.
type Option func(*options)

// WithLogger configures structured logging. Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel installs a text logger at the given level. Convenience
// wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures metrics collection. Pass nil to disable.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithShardDefinition routes documents to multiple shards by posting count.
// The default is a single shard.
func WithShardDefinition(def *config.ShardDefinition) Option {
	return func(o *options) {
		o.shardDefinition = def
	}
}

// WithFileManager configures where WriteStatistics emits its artifacts.
func WithFileManager(fm filemanager.FileManager) Option {
	return func(o *options) {
		o.fileManager = fm
	}
}

// WithDocFrequencyTracking enables per-shard term frequency tables. Tracking
// costs one map update per posting.
func WithDocFrequencyTracking() Option {
	return func(o *options) {
		o.trackFrequencies = true
	}
}

// WithTruncateBelowFrequency drops terms rarer than the given document
// frequency from the emitted frequency and idf tables.
func WithTruncateBelowFrequency(frequency float64) Option {
	return func(o *options) {
		o.truncateBelowFrequency = frequency
	}
}

// WithConfig applies a loaded configuration: shard routing, frequency
// tracking and statistics emission.
func WithConfig(cfg config.Config) Option {
	return func(o *options) {
		o.shardDefinition = cfg.ShardDefinition()
		o.trackFrequencies = cfg.TrackDocumentFrequencies
		o.truncateBelowFrequency = cfg.Statistics.TruncateBelowFrequency
		if cfg.Statistics.Directory != "" {
			var localOpts []filemanager.LocalOption
			if cfg.Statistics.Gzip {
				localOpts = append(localOpts, filemanager.WithGzip())
			}
			o.fileManager = filemanager.NewLocal(cfg.Statistics.Directory, localOpts...)
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		shardDefinition:  config.NewShardDefinition(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
