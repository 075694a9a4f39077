package budget

import "fmt"

// ErrExceeded is returned when usage surpasses configured limits.
type ErrExceeded struct {
	Kind  string
	Usage int64
	Limit int64
}

func (e ErrExceeded) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("budget %s exceeded: usage=%d limit=%d", e.Kind, e.Usage, e.Limit)
	}
	return fmt.Sprintf("budget %s exceeded: usage=%d", e.Kind, e.Usage)
}
