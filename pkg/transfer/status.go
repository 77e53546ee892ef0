package transfer

import (
	"fmt"
	"strings"
)

// Direction is the way bytes flow for a transfer.
type Direction int

const (
	// Download stages a remote resource into the local cache.
	Download Direction = iota
	// Upload pushes a cached file to its remote locator.
	Upload
)

func (d Direction) String() string {
	switch d {
	case Download:
		return "download"
	case Upload:
		return "upload"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool { return d == Download || d == Upload }

// ParseDirection converts the String form back into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "download":
		return Download, nil
	case "upload":
		return Upload, nil
	}
	return 0, fmt.Errorf("unknown transfer direction %q", s)
}

func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid transfer direction %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Status is the lifecycle state of a transfer record.
//
// Statuses are ranked and a record only ever moves to a higher rank:
//
//	Unspecified(0) -> Scheduled(1) -> InProgress(2) -> Completed|Failed(3)
//
// Intermediate ranks may be skipped (synchronous execution never passes
// through Scheduled). Completed and Failed are terminal.
type Status int

const (
	Unspecified Status = iota
	Scheduled
	InProgress
	Completed
	Failed
)

var statusNames = [...]string{
	Unspecified: "unspecified",
	Scheduled:   "scheduled",
	InProgress:  "in_progress",
	Completed:   "completed",
	Failed:      "failed",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return s >= Unspecified && s <= Failed }

// IsTerminal reports whether s is Completed or Failed.
func (s Status) IsTerminal() bool { return s == Completed || s == Failed }

func (s Status) rank() int {
	if s == Failed {
		return int(Completed)
	}
	return int(s)
}

// CanTransitionTo reports whether a record in status s may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	if !s.Valid() || !next.Valid() || s.IsTerminal() {
		return false
	}
	return next.rank() > s.rank()
}

// ParseStatus converts the String form back into a Status.
func ParseStatus(str string) (Status, error) {
	for i, n := range statusNames {
		if strings.EqualFold(n, str) {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown transfer status %q", str)
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid transfer status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
