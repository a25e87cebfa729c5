package activitymap

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-accounts"
)

const (
	MetadataKeyFromStatus = "from_status"
	MetadataKeyToStatus   = "to_status"
	MetadataKeyEmail      = "email"
)

const (
	defaultObjectType = "account"
	anonymousActor    = "anonymous"
)

// Record is the flat audit shape written for downstream consumers.
type Record struct {
	Actor      string         `json:"actor"`
	Verb       string         `json:"verb"`
	Channel    string         `json:"channel"`
	ObjectType string         `json:"object_type"`
	ObjectID   string         `json:"object_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes the mapping.
type Option func(*options)

type options struct {
	includeEmail bool
	now          func() time.Time
}

// WithEmail copies the event email into metadata. Off by default.
func WithEmail() Option {
	return func(o *options) {
		o.includeEmail = true
	}
}

// WithClock sets the time used for events without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Normalize maps an account activity event to a Record. The channel is the
// first segment of the event type, so auth.login.failure lands on "auth".
func Normalize(event accounts.ActivityEvent, opts ...Option) Record {
	return normalize(event, buildOptions(opts))
}

func normalize(event accounts.ActivityEvent, o options) Record {
	verb := string(event.EventType)
	channel := verb
	if i := strings.Index(verb, "."); i > 0 {
		channel = verb[:i]
	}

	actor := strings.TrimSpace(event.AccountID)
	if actor == "" {
		actor = anonymousActor
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = o.now()
	}

	return Record{
		Actor:      actor,
		Verb:       verb,
		Channel:    channel,
		ObjectType: defaultObjectType,
		ObjectID:   strings.TrimSpace(event.AccountID),
		Metadata:   metadata(event, o),
		OccurredAt: occurredAt,
	}
}

func metadata(event accounts.ActivityEvent, o options) map[string]any {
	var out map[string]any
	set := func(k string, v any) {
		if out == nil {
			out = make(map[string]any, len(event.Metadata)+3)
		}
		out[k] = v
	}

	for k, v := range event.Metadata {
		set(k, v)
	}
	if event.FromStatus != "" {
		set(MetadataKeyFromStatus, string(event.FromStatus))
	}
	if event.ToStatus != "" {
		set(MetadataKeyToStatus, string(event.ToStatus))
	}
	if o.includeEmail && event.Email != "" {
		set(MetadataKeyEmail, event.Email)
	}
	return out
}

// Sink writes one JSON record per line.
type Sink struct {
	mu   sync.Mutex
	enc  *json.Encoder
	opts options
}

// NewSink returns an activity sink that appends records to w.
func NewSink(w io.Writer, opts ...Option) *Sink {
	return &Sink{enc: json.NewEncoder(w), opts: buildOptions(opts)}
}

func (s *Sink) Record(_ context.Context, event accounts.ActivityEvent) error {
	rec := normalize(event, s.opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(rec)
}
