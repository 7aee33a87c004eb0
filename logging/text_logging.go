package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"unicode"
	"unicode/utf8"
)

// TextHandler writes compact log lines for terminal use where each line is
// tagged with the component that logged it:
//
//	2026/01/02 15:04:05 INFO [producer] spilled chunk lines=1000000
type TextHandler struct {
	out       io.Writer
	component string
	mu        *sync.Mutex // Serialize writes to out
	attrs     []slog.Attr
	group     string
}

func NewTextHandlerWithWriter(w io.Writer) *TextHandler {
	return &TextHandler{
		out:       w,
		mu:        &sync.Mutex{},
		component: "root",
	}
}

func (h *TextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= globalLevel.Level()
}

func (h *TextHandler) Handle(ctx context.Context, r slog.Record) error {
	buf := make([]byte, 0, 1024)
	buf = fmt.Appendf(buf, "%s ", r.Time.Format("2006/01/02 15:04:05"))
	buf = fmt.Appendf(buf, "%s ", r.Level.String())
	buf = fmt.Appendf(buf, "[%s] ", h.component)
	buf = fmt.Appendf(buf, "%s", r.Message)

	for _, a := range h.attrs {
		buf = appendAttr(buf, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		buf = appendAttr(buf, h.group, a)
		return true
	})
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf)
	return err
}

func (h *TextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	// The component is printed in the line prefix rather than as an attr.
	next := h.clone()
	attrs = slices.Clone(attrs)
	if i := slices.IndexFunc(attrs, func(a slog.Attr) bool { return a.Key == "component" }); i >= 0 {
		next.component = attrs[i].Value.String()
		attrs = slices.Delete(attrs, i, i+1)
	}
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return next
}

func (h *TextHandler) WithGroup(name string) slog.Handler {
	next := h.clone()
	if next.group == "" {
		next.group = name
	} else {
		next.group = next.group + "." + name
	}
	return next
}

func (h *TextHandler) clone() *TextHandler {
	return &TextHandler{
		out:       h.out,
		mu:        h.mu,
		component: h.component,
		attrs:     slices.Clip(h.attrs),
		group:     h.group,
	}
}

func appendAttr(buf []byte, group string, a slog.Attr) []byte {
	if a.Equal(slog.Attr{}) {
		return buf
	}
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	buf = fmt.Appendf(buf, " %s=", key)
	return appendValue(buf, a.Value.Resolve())
}

// Append a value to the buffer wrapping in quotes if needed.
func appendValue(buf []byte, value slog.Value) []byte {
	s := value.String()
	if needsQuoting(s) {
		return fmt.Appendf(buf, "%q", s)
	}
	return append(buf, s...)
}

// Copied from the std library with safeSet check removed since really only
// spaces and `=` should be a problem with the text logger.
func needsQuoting(s string) bool {
	if len(s) == 0 {
		return true
	}
	for i := 0; i < len(s); {
		b := s[i]
		if b < utf8.RuneSelf {
			if b != '\\' && (b == ' ' || b == '=') {
				return true
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError || unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return true
		}
		i += size
	}
	return false
}
