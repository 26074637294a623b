package daemon

import (
	"strconv"
	"strings"
)

// activeMarker selects the Active branch. It only counts when it is not the
// tail of a longer word, so "inactive (dead)" stays in the Inactive branch.
const activeMarker = "active ("

// stateMarker pairs a parenthesized sub state marker with its value
type stateMarker struct {
	text string
	sub  SubState
}

// Markers are tried in order; the first match wins.
var (
	activeMarkers = []stateMarker{
		{"(running)", SubRunning},
		{"(exited)", SubExited},
		{"(waiting)", SubWaiting},
		{"(dead)", SubDead},
	}

	inactiveMarkers = []stateMarker{
		{"(dead)", SubDead},
		{"(exited)", SubExited},
		{"(waiting)", SubWaiting},
		{"(resetting)", SubResetting},
	}
)

// ParseState derives a ServiceState from free-form systemctl status text.
// Surrounding text is ignored. If no marker of the selected branch matches,
// a ParseError of kind UnrecognizedState is returned; there is no fallback.
func ParseState(raw string) (ServiceState, error) {
	if hasActiveMarker(raw) {
		for _, m := range activeMarkers {
			if strings.Contains(raw, m.text) {
				return Active(m.sub), nil
			}
		}
		return ServiceState{}, &ParseError{Kind: UnrecognizedState, Text: raw}
	}

	for _, m := range inactiveMarkers {
		if strings.Contains(raw, m.text) {
			return Inactive(m.sub), nil
		}
	}
	return ServiceState{}, &ParseError{Kind: UnrecognizedState, Text: raw}
}

// ParseStatus builds a ServiceStatus from the status text and the failed flag.
// PID and Cmdline are filled in by the caller from their own queries.
func ParseStatus(raw string, failed bool) (ServiceStatus, error) {
	state, err := ParseState(raw)
	if err != nil {
		return ServiceStatus{}, err
	}
	return ServiceStatus{
		State:   state,
		Failed:  failed,
		Details: raw,
	}, nil
}

// ParsePID parses the output of "systemctl show -p MainPID", accepting both
// "MainPID=123" and a bare "123".
func ParsePID(output string) (uint32, error) {
	value := strings.TrimSpace(output)
	value = strings.TrimSpace(strings.TrimPrefix(value, "MainPID="))

	pid, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, &ParseError{Kind: MalformedPID, Text: output}
	}
	return uint32(pid), nil
}

// parseFailed interprets "systemctl is-failed" output
func parseFailed(output string) bool {
	return strings.Contains(output, "failed")
}

func hasActiveMarker(raw string) bool {
	for offset := 0; offset < len(raw); {
		i := strings.Index(raw[offset:], activeMarker)
		if i < 0 {
			return false
		}
		pos := offset + i
		if pos == 0 || !isWordByte(raw[pos-1]) {
			return true
		}
		offset = pos + len(activeMarker)
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_' || b == '-'
}
