package callmonitor

import (
	"strings"

	"callmonitor_sdk/internal/callmonitor/domain"
)

// sessionMatchToleranceMS bounds the gap between a presence call's start
// time and the matched session's effective start time. The tolerance covers
// the delay between the local session object being created on INVITE and
// the server-side presence record reflecting the new active call; the value
// is empirically tuned.
const sessionMatchToleranceMS = 16000

// MatchSession finds the local signaling session that most plausibly
// corresponds to a presence call. No shared identifier exists between the
// two sources, so this is a heuristic join: direction equality, remote-URI
// substring containment, and start-time proximity. Sessions are scanned in
// their given order and the first survivor wins. Returns nil when no
// session qualifies; an unmatched call is a valid state, not an error.
func MatchSession(sessions []*domain.SignalingSession, call domain.CallRecord) *domain.SignalingSession {
	if len(sessions) == 0 || call.SIPData == nil {
		return nil
	}
	for _, session := range sessions {
		if session.Direction != call.Direction {
			continue
		}
		if session.Direction == domain.DirectionInbound &&
			!strings.Contains(call.SIPData.RemoteURI, session.From) {
			continue
		}
		if session.Direction == domain.DirectionOutbound &&
			!strings.Contains(call.SIPData.RemoteURI, session.To) {
			continue
		}
		if absMS(call.StartTime-session.EffectiveStartTime()) > sessionMatchToleranceMS {
			continue
		}
		return session
	}
	return nil
}

func absMS(d int64) int64 {
	if d < 0 {
		return -d
	}
	return d
}
