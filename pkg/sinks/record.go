package sinks

import (
	"strings"
	"time"

	"github.com/apiwire-hq/apiwire/pkg/typedhttp"
)

// Record is the payload delivered to sinks for one finished call.
type Record struct {
	Service    string    `json:"service"`
	Endpoint   string    `json:"endpoint"`
	Method     string    `json:"method"`
	URL        string    `json:"url"`
	StatusCode int       `json:"status_code"`
	Outcome    string    `json:"outcome"`
	OK         bool      `json:"ok"`
	ElapsedMs  int64     `json:"elapsed_ms"`
	StartedAt  time.Time `json:"started_at"`
}

// NewRecord builds a Record from a call report. The report label, when shaped
// as "service/endpoint", is split into the two identity fields.
func NewRecord(rep typedhttp.CallReport) Record {
	service, endpoint := splitLabel(rep.Label)
	return Record{
		Service:    service,
		Endpoint:   endpoint,
		Method:     rep.Method,
		URL:        rep.URL,
		StatusCode: rep.StatusCode,
		Outcome:    rep.Kind.String(),
		OK:         rep.OK(),
		ElapsedMs:  rep.Elapsed.Milliseconds(),
		StartedAt:  rep.StartedAt,
	}
}

func splitLabel(label string) (service, endpoint string) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", ""
	}
	if i := strings.IndexByte(label, '/'); i >= 0 {
		return label[:i], label[i+1:]
	}
	return label, ""
}
