package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/footpredict/pkg/integrations/footpredict"
)

// newLogger creates the CLI logger. Timestamps are formatted as
// "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx.
// If no logger is attached, it returns log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// commandLogger returns the context logger tagged with the running
// command's name.
func commandLogger(cmd *cobra.Command) *log.Logger {
	return loggerFromContext(cmd.Context()).With("cmd", cmd.Name())
}

// progress times one backend operation and reports how its result was
// obtained. Not safe for concurrent use.
type progress struct {
	logger *log.Logger
	op     string
	start  time.Time
}

func newProgress(l *log.Logger, op string) *progress {
	return &progress{logger: l, op: op, start: time.Now()}
}

func (p *progress) elapsed() time.Duration {
	return time.Since(p.start).Round(time.Millisecond)
}

// done logs a completed operation at debug level, e.g.
// "leagues done state=cache_hit attempts=0 elapsed=1ms".
func (p *progress) done(m footpredict.Meta) {
	kv := []any{"state", m.State, "attempts", m.Attempts, "elapsed", p.elapsed()}
	if m.Stale {
		kv = append(kv, "stored_at", m.StoredAt.Format(time.TimeOnly))
	}
	p.logger.Debug(p.op+" done", kv...)
}

// failed logs a failed operation at debug level and returns err unchanged.
func (p *progress) failed(err error) error {
	p.logger.Debug(p.op+" failed", "err", err, "elapsed", p.elapsed())
	return err
}
