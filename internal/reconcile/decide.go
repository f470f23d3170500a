package reconcile

import (
	"github.com/2beens/gymplanner/internal/remote"
)

// Outcome is what a session start reconciliation ended up doing.
type Outcome int

const (
	// OutcomeLocalOnly means there was no identity; nothing left the device.
	OutcomeLocalOnly Outcome = iota
	// OutcomeRemoteUnavailable means the remote fetch failed; the session runs on local data.
	OutcomeRemoteUnavailable
	// OutcomeBootstrapPush means the account had no document and local data was pushed.
	OutcomeBootstrapPush
	// OutcomeRemoteAdopted means remote was at least as new and not empty; it replaced local data.
	OutcomeRemoteAdopted
	// OutcomeEmptyRemotePush means remote was as new but held no templates; local data was pushed.
	OutcomeEmptyRemotePush
	// OutcomeLocalPushed means local data was newer and was pushed.
	OutcomeLocalPushed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLocalOnly:
		return "local_only"
	case OutcomeRemoteUnavailable:
		return "remote_unavailable"
	case OutcomeBootstrapPush:
		return "bootstrap_push"
	case OutcomeRemoteAdopted:
		return "remote_adopted"
	case OutcomeEmptyRemotePush:
		return "empty_remote_push"
	case OutcomeLocalPushed:
		return "local_pushed"
	default:
		return "unknown"
	}
}

// Pushes reports whether the outcome sends local data to the remote store.
func (o Outcome) Pushes() bool {
	return o == OutcomeBootstrapPush || o == OutcomeEmptyRemotePush || o == OutcomeLocalPushed
}

// Decide picks the authoritative side. doc is nil when the account has no document.
// Ties go to remote unless it has no templates.
func Decide(doc *remote.Document, remoteTime, localTime int64) Outcome {
	if doc == nil {
		return OutcomeBootstrapPush
	}
	if remoteTime >= localTime {
		if len(doc.Templates) > 0 {
			return OutcomeRemoteAdopted
		}
		return OutcomeEmptyRemotePush
	}
	return OutcomeLocalPushed
}
