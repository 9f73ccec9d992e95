package order

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnparsableNumber is returned when spoken digits do not form an integer.
// The current sub-dialogue is aborted (as if the speaker said "stop"), never
// retried.
var ErrUnparsableNumber = errors.New("order: unparsable spoken number")

var digitWords = map[string]string{
	"zero": "0", "oh": "0",
	"one": "1", "two": "2", "three": "3", "four": "4",
	"five": "5", "six": "6", "seven": "7", "eight": "8", "nine": "9",
}

// ParseSpokenNumber turns spoken digits into an integer: "five one two"
// becomes 512. Digit words and literal digit runs may be mixed ("5 one 2").
func ParseSpokenNumber(utterance string) (int, error) {
	var sb strings.Builder
	for _, word := range strings.Fields(strings.ToLower(utterance)) {
		if d, ok := digitWords[word]; ok {
			sb.WriteString(d)
			continue
		}
		if _, err := strconv.Atoi(word); err != nil {
			return 0, fmt.Errorf("%w: %q", ErrUnparsableNumber, word)
		}
		sb.WriteString(word)
	}
	if sb.Len() == 0 {
		return 0, fmt.Errorf("%w: empty utterance", ErrUnparsableNumber)
	}
	n, err := strconv.Atoi(sb.String())
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparsableNumber, sb.String())
	}
	return n, nil
}
