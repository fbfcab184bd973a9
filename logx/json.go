package logx

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// Redacted replaces the value of every attribute whose key is marked secret.
const Redacted = "[redacted]"

type jsonhandler struct {
	Out    io.Writer
	Err    io.Writer
	Option *slog.HandlerOptions

	mu     *sync.Mutex
	secret map[string]bool
	groups []string
	attrs  []slog.Attr
}

var _ slog.Handler = &jsonhandler{}

type Option func(*jsonhandler)

// WithErrorWriter sends records at slog.LevelError and above to w.
func WithErrorWriter(w io.Writer) Option {
	return func(h *jsonhandler) {
		h.Err = w
	}
}

func WithLevel(level slog.Leveler) Option {
	return func(h *jsonhandler) {
		h.Option.Level = level
	}
}

func WithAddSource(add bool) Option {
	return func(h *jsonhandler) {
		h.Option.AddSource = add
	}
}

func WithReplaceAttr(fn func(groups []string, a slog.Attr) slog.Attr) Option {
	return func(h *jsonhandler) {
		h.Option.ReplaceAttr = fn
	}
}

// WithSecrets marks attribute keys whose values must never reach the output,
// such as key material passed to a log call by mistake.
func WithSecrets(keys ...string) Option {
	return func(h *jsonhandler) {
		for _, k := range keys {
			h.secret[k] = true
		}
	}
}

func New(o io.Writer, opts ...Option) *jsonhandler {
	if o == nil {
		o = io.Discard
	}
	var s jsonhandler
	s.Option = &slog.HandlerOptions{}
	s.Out = o
	s.mu = new(sync.Mutex)
	s.secret = map[string]bool{}
	for _, v := range opts {
		v(&s)
	}
	if s.Err == nil {
		s.Err = s.Out
	}
	return &s
}

// NewLogger is New wrapped in a slog.Logger.
func NewLogger(o io.Writer, opts ...Option) *slog.Logger {
	return slog.New(New(o, opts...))
}

func (s *jsonhandler) clone() *jsonhandler {
	return &jsonhandler{
		Out:    s.Out,
		Err:    s.Err,
		Option: s.Option,
		mu:     s.mu,
		secret: s.secret,
		groups: s.groups[:len(s.groups):len(s.groups)],
		attrs:  s.attrs[:len(s.attrs):len(s.attrs)],
	}
}

func (s *jsonhandler) Enabled(ctx context.Context, l slog.Level) bool {
	min := slog.LevelInfo
	if s.Option.Level != nil {
		min = s.Option.Level.Level()
	}
	return l >= min
}

func (s *jsonhandler) Handle(ctx context.Context, r slog.Record) (e error) {
	if !s.Enabled(ctx, r.Level) {
		return
	}
	var msg = map[string]any{
		slog.MessageKey: r.Message,
		slog.LevelKey:   r.Level.String(),
	}
	if !r.Time.IsZero() {
		msg[slog.TimeKey] = r.Time.Format(time.RFC3339Nano)
	}
	if s.Option.AddSource && r.PC != 0 {
		src, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		msg[slog.SourceKey] = map[string]any{"function": src.Function, "file": src.File, "line": src.Line}
	}

	// Handler attrs were resolved when WithAttrs was called, record attrs
	// land in the innermost open group.
	for _, v := range s.attrs {
		s.put(msg, nil, v)
	}
	target := msg
	for _, g := range s.groups {
		sub, ok := target[g].(map[string]any)
		if !ok {
			sub = map[string]any{}
			target[g] = sub
		}
		target = sub
	}
	r.Attrs(func(v slog.Attr) bool {
		s.put(target, s.groups, v)
		return true
	})

	w := s.Out
	if r.Level >= slog.LevelError && s.Err != nil {
		w = s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	e = enc.Encode(msg)
	return
}

func (s *jsonhandler) put(dst map[string]any, groups []string, a slog.Attr) {
	if fn := s.Option.ReplaceAttr; fn != nil && a.Value.Kind() != slog.KindGroup {
		a = fn(groups, a)
	}
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if s.secret[a.Key] {
		dst[a.Key] = Redacted
		return
	}
	if a.Value.Kind() != slog.KindGroup {
		dst[a.Key] = a.Value.Any()
		return
	}
	members := a.Value.Group()
	if len(members) == 0 {
		return
	}
	sub := dst
	if a.Key != "" {
		m, ok := dst[a.Key].(map[string]any)
		if !ok {
			m = map[string]any{}
			dst[a.Key] = m
		}
		sub = m
		groups = append(groups[:len(groups):len(groups)], a.Key)
	}
	for _, v := range members {
		s.put(sub, groups, v)
	}
}

func (s *jsonhandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return s
	}
	a := s.clone()
	for _, v := range attrs {
		// Nest under the groups open at this point.
		for i := len(s.groups) - 1; i >= 0; i-- {
			v = slog.Attr{Key: s.groups[i], Value: slog.GroupValue(v)}
		}
		a.attrs = append(a.attrs, v)
	}
	return a
}

func (s *jsonhandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	a := s.clone()
	a.groups = append(a.groups, name)
	return a
}
