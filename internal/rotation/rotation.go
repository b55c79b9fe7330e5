package rotation

import (
	"errors"
	"fmt"
)

var ErrEmptyRoster = errors.New("rotation: empty roster")

// Assignee returns the member responsible for the i-th period: roster[i mod N].
// Rotation always restarts at roster[0]; no cursor is kept between runs.
func Assignee(roster []int64, i int) (int64, error) {
	if len(roster) == 0 {
		return 0, ErrEmptyRoster
	}
	if i < 0 {
		return 0, fmt.Errorf("rotation: negative period index %d", i)
	}
	return roster[i%len(roster)], nil
}

// Sequence returns the assignees of the first n periods.
func Sequence(roster []int64, n int) ([]int64, error) {
	out := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		id, err := Assignee(roster, i)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
