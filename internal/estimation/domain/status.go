package domain

// IsValidStatus reports whether s is one of the persisted estimation statuses.
func IsValidStatus(s string) bool {
	switch s {
	case StatusStandby, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// IsTerminal reports whether no further mutation is accepted in status s.
func IsTerminal(s string) bool { return s == StatusCompleted }
