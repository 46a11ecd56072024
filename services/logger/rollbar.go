package logsvc

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/user"
)

const stdFlags = log.LstdFlags | log.Lmicroseconds | log.LUTC

// RollbarLogger writes every entry to a std logger and reports it to rollbar when enabled.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewRollbarLogger configures the rollbar client. Reporting is enabled outside debug mode
// whenever a token is configured.
func NewRollbarLogger(out io.Writer, component string, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.Debug)
	return &RollbarLogger{std: log.New(out, prefix(component), stdFlags)}
}

func prefix(component string) string {
	return strings.ToUpper(component) + " : "
}

// Named returns a logger sharing the rollbar client under another component prefix.
func (l *RollbarLogger) Named(component string) *RollbarLogger {
	return &RollbarLogger{std: log.New(l.std.Writer(), prefix(component), stdFlags)}
}

// prepare builds the rollbar payload. The session identity, if any, travels with the item
// as a person context rather than as client state.
// expected fmt: msg | error, map[string]interface{}, user.Identity
func (l *RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var person *rollbar.Person
	payload := make([]interface{}, 0, len(args)+2)
	payload = append(payload, msg)
	for _, arg := range args {
		if id, ok := arg.(user.Identity); ok {
			if person == nil { // rollbar keeps one person per item
				person = &rollbar.Person{Id: id.Role + ":" + id.Name, Username: id.Name}
			}
			continue
		}
		payload = append(payload, arg)
	}
	if person != nil {
		payload = append(payload, rollbar.NewPersonContext(context.Background(), person))
	}
	return payload
}

func (l *RollbarLogger) print(level, msg string, args []interface{}) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteString(" ")
	b.WriteString(msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			fmt.Fprintf(&b, " | err=%v", a)
		case user.Identity:
			fmt.Fprintf(&b, " | user=%s(%s)", a.Name, a.Role)
		default:
			fmt.Fprintf(&b, " | %+v", a)
		}
	}
	l.std.Println(b.String())
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print("DEBUG", msg, args)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print("INFO", msg, args)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print("WARN", msg, args)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print("ERROR", msg, args)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	l.print("FATAL", msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
