package health

import (
	"context"
	"time"
)

// Component states reported by Status.
const (
	StateUp       = "up"
	StateDown     = "down"
	StateDisabled = "disabled"
)

const defaultProbeTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Report is the /health payload.
type Report struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
	Queue    string `json:"queue"`
	Version  string `json:"version,omitempty"`
}

// Service encapsulates health-related checks.
type Service struct {
	DB           Pinger
	QueueEnabled bool
	Version      string
	Timeout      time.Duration
}

// NewService constructs a new health service. db may be nil when the process
// runs on in-memory repositories.
func NewService(db Pinger, queueEnabled bool, version string) *Service {
	return &Service{DB: db, QueueEnabled: queueEnabled, Version: version, Timeout: defaultProbeTimeout}
}

// Status pings the database and reports the configured queue. OK is false
// only when a configured dependency is down.
func (s *Service) Status(ctx context.Context) Report {
	r := Report{OK: true, Database: StateDisabled, Queue: StateDisabled, Version: s.Version}
	if s.QueueEnabled {
		r.Queue = StateUp
	}
	if s.DB == nil {
		return r
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		r.Database = StateDown
		r.OK = false
		return r
	}
	r.Database = StateUp
	return r
}
