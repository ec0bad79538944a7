package eventing

import "time"

// Presence log write sources.
const (
	SourceConnector = "connector"
	SourceIngest    = "ingest"
	SourceSampler   = "sampler"
	SourceSnapshot  = "snapshot"
)

// PresenceLogged is published after a status event is appended to the log.
type PresenceLogged struct {
	ScopeID   string
	SubjectID string
	Status    string
	Manual    bool
	At        time.Time
	Source    string
}
