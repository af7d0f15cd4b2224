package logx

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// journalWriter forwards log lines to systemd-journald.
//
// It applies a minimum level and a token-bucket rate limit so a misbehaving
// maintenance command cannot flood the journal. Dropped lines are silently
// discarded; the console/file sinks still carry the full stream.
type journalWriter struct {
	minLevel zerolog.Level
	limiter  *rate.Limiter
}

func newJournalWriter(cfg JournalConfig) *journalWriter {
	if !journal.Enabled() {
		return nil
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 10
	}
	return &journalWriter{
		minLevel: parseLevel(cfg.MinLevel, zerolog.InfoLevel),
		limiter:  rate.NewLimiter(rate.Limit(rps), rps),
	}
}

func (w *journalWriter) Write(p []byte) (int, error) {
	// Default to info when WriteLevel isn't used.
	return w.WriteLevel(zerolog.InfoLevel, p)
}

func (w *journalWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if w == nil {
		return len(p), nil
	}
	if level < w.minLevel {
		return len(p), nil
	}
	if !w.limiter.Allow() {
		return len(p), nil
	}

	msg, vars := formatJournalJSON(p)
	if msg == "" {
		return len(p), nil
	}
	_ = journal.Send(msg, journalPriority(level), vars)
	return len(p), nil
}

func journalPriority(level zerolog.Level) journal.Priority {
	switch {
	case level >= zerolog.ErrorLevel:
		return journal.PriErr
	case level >= zerolog.WarnLevel:
		return journal.PriWarning
	case level >= zerolog.InfoLevel:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// formatJournalJSON decodes a zerolog JSON line into a message plus journal
// field variables. Journal field names must be uppercase ASCII; keys that
// cannot be mapped are skipped.
func formatJournalJSON(p []byte) (string, map[string]string) {
	var m map[string]any
	if err := json.Unmarshal(bytesTrimSpace(p), &m); err != nil {
		// Not JSON; send raw (trimmed), but cap length.
		return truncate(strings.TrimSpace(string(p)), 2048), nil
	}

	msg, _ := m["message"].(string)
	if msg == "" {
		msg, _ = m["msg"].(string)
	}

	vars := make(map[string]string, len(m))
	for k, v := range m {
		if k == "time" || k == "level" || k == "message" || k == "msg" {
			continue
		}
		name := journalFieldName(k)
		if name == "" {
			continue
		}
		vars[name] = truncate(fmt.Sprint(v), 1024)
	}
	if len(vars) == 0 {
		vars = nil
	}
	return msg, vars
}

func journalFieldName(k string) string {
	var b strings.Builder
	for i := 0; i < len(k); i++ {
		c := k[i]
		switch {
		case c >= 'a' && c <= 'z':
			b.WriteByte(c - 'a' + 'A')
		case (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9' && b.Len() > 0):
			b.WriteByte(c)
		case c == '_' || c == '-' || c == '.':
			b.WriteByte('_')
		default:
			// skip
		}
	}
	return b.String()
}

func bytesTrimSpace(b []byte) []byte {
	i := 0
	j := len(b)
	for i < j && (b[i] == ' ' || b[i] == '\n' || b[i] == '\r' || b[i] == '\t') {
		i++
	}
	for j > i && (b[j-1] == ' ' || b[j-1] == '\n' || b[j-1] == '\r' || b[j-1] == '\t') {
		j--
	}
	return b[i:j]
}

func truncate(s string, maxN int) string {
	if maxN <= 0 || len(s) <= maxN {
		return s
	}
	if maxN < 10 {
		return s[:maxN]
	}
	return s[:maxN-3] + "..."
}
