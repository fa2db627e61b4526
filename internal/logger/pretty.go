package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiBlue   = "\033[34m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[90m"
)

// PrettyHandler renders records as single colored lines for terminal
// use:
//
//	[15:04:05] INFO  reading asset path=cube.psk
//
// Derived handlers share one mutex so interleaved writes from
// WithAttrs/WithGroup children stay line-atomic.
type PrettyHandler struct {
	opts  slog.HandlerOptions
	mu    *sync.Mutex
	w     io.Writer
	attrs []slog.Attr
	group string
}

// NewPrettyHandler returns a handler writing to w. A nil opts means
// info level.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	h := &PrettyHandler{mu: &sync.Mutex{}, w: w}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	threshold := slog.LevelInfo
	if h.opts.Level != nil {
		threshold = h.opts.Level.Level()
	}
	return level >= threshold
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 256)

	if !r.Time.IsZero() {
		buf = append(buf, ansiGray...)
		buf = append(buf, '[')
		buf = r.Time.AppendFormat(buf, time.TimeOnly)
		buf = append(buf, ']')
		buf = append(buf, ansiReset...)
		buf = append(buf, ' ')
	}

	buf = append(buf, levelColor(r.Level)...)
	buf = append(buf, ansiBold...)
	buf = appendLevel(buf, r.Level)
	buf = append(buf, ansiReset...)
	buf = append(buf, ' ')

	buf = append(buf, r.Message...)

	if len(h.attrs)+r.NumAttrs() > 0 {
		buf = append(buf, ' ')
		buf = append(buf, ansiCyan...)
		first := true
		emit := func(a slog.Attr) {
			if !first {
				buf = append(buf, ' ')
			}
			first = false
			buf = appendAttr(buf, h.group, a)
		}
		for _, a := range h.attrs {
			emit(a)
		}
		r.Attrs(func(a slog.Attr) bool {
			emit(a)
			return true
		})
		buf = append(buf, ansiReset...)
	}
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	h2.attrs = slices.Concat(h.attrs, attrs)
	return &h2
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.group = name
	if h.group != "" {
		h2.group = h.group + "." + name
	}
	return &h2
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return ansiRed
	case level >= slog.LevelWarn:
		return ansiYellow
	case level >= slog.LevelInfo:
		return ansiBlue
	default:
		return ansiGray
	}
}

// appendLevel pads the level name to five columns so messages line up
// across records.
func appendLevel(buf []byte, level slog.Level) []byte {
	s := level.String()
	buf = append(buf, s...)
	for i := len(s); i < 5; i++ {
		buf = append(buf, ' ')
	}
	return buf
}

func appendAttr(buf []byte, group string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if group != "" {
		buf = append(buf, group...)
		buf = append(buf, '.')
	}
	buf = append(buf, a.Key...)
	buf = append(buf, '=')

	switch v := a.Value; v.Kind() {
	case slog.KindString:
		buf = appendString(buf, v.String())
	case slog.KindTime:
		buf = v.Time().AppendFormat(buf, time.RFC3339)
	case slog.KindGroup:
		buf = append(buf, '{')
		for i, member := range v.Group() {
			if i > 0 {
				buf = append(buf, ' ')
			}
			buf = appendAttr(buf, "", member)
		}
		buf = append(buf, '}')
	default:
		buf = append(buf, fmt.Sprint(v.Any())...)
	}
	return buf
}

// appendString quotes values that would blur the key=value grammar:
// empties, whitespace and embedded quotes.
func appendString(buf []byte, s string) []byte {
	if s == "" || strings.ContainsAny(s, " \t\n\"") {
		return strconv.AppendQuote(buf, s)
	}
	return append(buf, s...)
}
