package monthplan

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrDateExists   = errors.New("monthplan: date already planned")
	ErrDateUnknown  = errors.New("monthplan: date not planned")
	ErrOverlap      = errors.New("monthplan: time range overlaps an existing activity")
	ErrBadTimeRange = errors.New("monthplan: bad time range")
)

// span is one activity's time range, kept as minute-of-day endpoints. Its
// storage key is the "startH startM endH endM" string of four integers.
type span struct {
	start, end int
}

func (s span) key() string {
	return fmt.Sprintf("%d %d %d %d", s.start/60, s.start%60, s.end/60, s.end%60)
}

// overlaps reports a conflict with an existing span: either endpoint of the
// new range strictly inside the existing one, or the new range fully
// containing it.
func (s span) overlaps(existing span) bool {
	if existing.start < s.start && s.start < existing.end {
		return true
	}
	if existing.start < s.end && s.end < existing.end {
		return true
	}
	return s.start <= existing.start && s.end >= existing.end
}

// dateNode is one calendar date in the plan. The list is singly linked in
// insertion order, not sorted by date value.
type dateNode struct {
	date       string
	activities map[string]string // range key -> activity name
	spans      map[string]span
	next       *dateNode
}

// Plan is the ordered set of planned dates.
type Plan struct {
	head, tail *dateNode
}

func NewPlan() *Plan { return &Plan{} }

func (p *Plan) find(date string) *dateNode {
	for n := p.head; n != nil; n = n.next {
		if n.date == date {
			return n
		}
	}
	return nil
}

// AddDate appends a date to the plan.
func (p *Plan) AddDate(date string) error {
	if p.find(date) != nil {
		return fmt.Errorf("%w: %s", ErrDateExists, date)
	}
	n := &dateNode{
		date:       date,
		activities: make(map[string]string),
		spans:      make(map[string]span),
	}
	if p.tail == nil {
		p.head, p.tail = n, n
		return nil
	}
	p.tail.next = n
	p.tail = n
	return nil
}

// DeleteDate unlinks a date, fixing head and tail as needed.
func (p *Plan) DeleteDate(date string) error {
	var prev *dateNode
	for n := p.head; n != nil; prev, n = n, n.next {
		if n.date != date {
			continue
		}
		if prev == nil {
			p.head = n.next
		} else {
			prev.next = n.next
		}
		if p.tail == n {
			p.tail = prev
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrDateUnknown, date)
}

// AddActivity books name on date over [start, end) minutes-of-day, rejecting
// ranges that conflict with what is already booked.
func (p *Plan) AddActivity(date string, start, end int, name string) error {
	if start < 0 || end > 24*60 || start >= end {
		return fmt.Errorf("%w: %d..%d", ErrBadTimeRange, start, end)
	}
	n := p.find(date)
	if n == nil {
		return fmt.Errorf("%w: %s", ErrDateUnknown, date)
	}
	next := span{start: start, end: end}
	for _, existing := range n.spans {
		if next.overlaps(existing) {
			return fmt.Errorf("%w: %s is taken around %s", ErrOverlap, existing.key(), date)
		}
	}
	n.activities[next.key()] = name
	n.spans[next.key()] = next
	return nil
}

// Dates returns the planned dates in insertion order.
func (p *Plan) Dates() []string {
	var out []string
	for n := p.head; n != nil; n = n.next {
		out = append(out, n.date)
	}
	return out
}

// Activities returns date's bookings keyed by their four-integer range key.
func (p *Plan) Activities(date string) map[string]string {
	n := p.find(date)
	if n == nil {
		return nil
	}
	out := make(map[string]string, len(n.activities))
	for k, v := range n.activities {
		out[k] = v
	}
	return out
}

// parseRange reads four integers (start hour, start minute, end hour, end
// minute) out of an utterance like "from 15 0 to 18 0".
func parseRange(utterance string) (start, end int, err error) {
	var nums []int
	for _, word := range strings.Fields(utterance) {
		if v, convErr := strconv.Atoi(word); convErr == nil {
			nums = append(nums, v)
		}
	}
	if len(nums) != 4 {
		return 0, 0, fmt.Errorf("%w: need four numbers, heard %d", ErrBadTimeRange, len(nums))
	}
	start = nums[0]*60 + nums[1]
	end = nums[2]*60 + nums[3]
	if start < 0 || end > 24*60 || start >= end {
		return 0, 0, fmt.Errorf("%w: %d..%d", ErrBadTimeRange, start, end)
	}
	return start, end, nil
}
