package models

// Processing state stored on Patient.Summary and Document.Anonymized.
// Values are kept as the strings the HTTP clients already poll for.
const (
	StateFalse     = "false"
	StateInProcess = "inProcess"
	StateTrue      = "true"
)

func ValidState(s string) bool {
	switch s {
	case StateFalse, StateInProcess, StateTrue:
		return true
	}
	return false
}

// StateFromResult maps a pipeline outcome to the terminal state.
func StateFromResult(ok bool) string {
	if ok {
		return StateTrue
	}
	return StateFalse
}
