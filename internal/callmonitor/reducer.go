package callmonitor

import (
	"encoding/json"

	"callmonitor_sdk/internal/state"
)

// callMatchedKey is the storage key for the persisted sessionId -> CRM
// entity association map. Registered at construction; survives module
// resets.
const callMatchedKey = "callMatched"

type setCallMatchedAction struct {
	SessionID string
	EntityID  string
}

func (setCallMatchedAction) ActionType() string { return "callMonitor/setMatchedData" }

type cleanCallMatchedAction struct{}

func (cleanCallMatchedAction) ActionType() string { return "callMonitor/cleanMatchedData" }

// callMatchedReducer maintains the association map. Entries are
// append/update-only; the only bulk eviction is the explicit clean action
// fired when the call list empties out. The current map handle is returned
// unchanged for no-op actions so that handle-identity change detection
// holds.
func callMatchedReducer(current any, action state.Action) any {
	matched, _ := current.(map[string]string)

	keep := func() any {
		if matched == nil {
			return map[string]string{}
		}
		return current
	}

	switch a := action.(type) {
	case setCallMatchedAction:
		if matched[a.SessionID] == a.EntityID {
			return keep()
		}
		next := make(map[string]string, len(matched)+1)
		for k, v := range matched {
			next[k] = v
		}
		next[a.SessionID] = a.EntityID
		return next

	case cleanCallMatchedAction:
		if len(matched) == 0 {
			return keep()
		}
		return map[string]string{}

	case state.HydrateAction:
		if a.Key != callMatchedKey {
			return keep()
		}
		var restored map[string]string
		if err := json.Unmarshal(a.Data, &restored); err != nil || restored == nil {
			return keep()
		}
		return restored

	default:
		return keep()
	}
}
