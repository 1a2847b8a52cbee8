package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"elapsed_timer/internal/models"
)

// Mode selects how duration phrases are parsed.
type Mode string

const (
	// ModeCompat classifies the payload by byte length, the way deployed
	// remote-control firmware does. Lengths 12, 22 and 34 match no bucket.
	ModeCompat Mode = "compat"
	// ModeGrammar tokenizes "<int> <unit>" clauses regardless of length.
	ModeGrammar Mode = "grammar"
)

// Length bucket boundaries of the compat format.
const (
	compatSecondsMax = 12
	compatMinutesMax = 22
	compatHoursMax   = 34
)

const (
	unitDays    = "days"
	unitHours   = "hours"
	unitMinutes = "minutes"
	unitSeconds = "seconds"
)

var (
	// ErrUndefinedBucket is reported for payload lengths that fall between compat buckets.
	ErrUndefinedBucket = errors.New("payload length matches no duration bucket")
	// ErrEmptyPayload is reported for blank duration phrases.
	ErrEmptyPayload = errors.New("empty duration payload")
	errBadInteger   = errors.New("expected integer")
	errBadUnit      = errors.New("unexpected unit")
)

// unit order, most significant first
var durationUnits = []struct {
	name  string
	field models.FieldMask
}{
	{unitDays, models.FieldDays},
	{unitHours, models.FieldHours},
	{unitMinutes, models.FieldMinutes},
	{unitSeconds, models.FieldSeconds},
}

// ParseMode validates a configured mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeCompat:
		return ModeCompat, nil
	case ModeGrammar:
		return ModeGrammar, nil
	default:
		return "", fmt.Errorf("unknown parser mode %q (want %q or %q)", s, ModeCompat, ModeGrammar)
	}
}

// DurationParser turns remote UI phrases into Reset or SetDuration commands.
type DurationParser struct {
	mode Mode
}

func NewDurationParser(mode Mode) *DurationParser {
	if mode == "" {
		mode = ModeCompat
	}
	return &DurationParser{mode: mode}
}

func (p *DurationParser) Mode() Mode { return p.mode }

// Parse interprets payload. The sentinel "Reset" always yields a reset.
//
// A *models.ParseFault is returned together with a SetDuration command when
// only a prefix of the clauses could be scanned; the command then selects
// just the fields that were defaulted or scanned and is still meant to be
// applied. A fault with a no-op command means nothing should change.
func (p *DurationParser) Parse(payload string) (models.Command, error) {
	if payload == ResetSentinel {
		return models.ResetCommand(), nil
	}
	if p.mode == ModeGrammar {
		return parseGrammar(payload)
	}
	return parseCompat(payload)
}

func parseCompat(payload string) (models.Command, error) {
	n := len(payload)

	var first int // index into durationUnits of the first scanned clause
	switch {
	case n < compatSecondsMax:
		first = 3
	case n > compatSecondsMax && n < compatMinutesMax:
		first = 2
	case n > compatMinutesMax && n < compatHoursMax:
		first = 1
	case n > compatHoursMax:
		first = 0
	default:
		return models.Command{}, &models.ParseFault{Input: payload, Reason: fmt.Sprintf("length %d", n), Err: ErrUndefinedBucket}
	}

	cmd := models.Command{Kind: models.CommandSetDuration}
	// more significant fields than the bucket covers are reset to zero
	for _, u := range durationUnits[:first] {
		cmd.Fields |= u.field
	}

	units := durationUnits[first:]
	names := make([]string, len(units))
	for i, u := range units {
		names[i] = u.name
	}
	values, err := scanClauses(payload, names)
	for i, v := range values {
		setField(&cmd.Duration, units[i].field, v)
		cmd.Fields |= units[i].field
	}
	if err != nil {
		return cmd, &models.ParseFault{Input: payload, Reason: fmt.Sprintf("scanned %d of %d clauses", len(values), len(units)), Err: err}
	}
	return cmd, nil
}

// scanClauses reads "<int> <unit> <int> <unit> ..." the way a scanf format
// would: whitespace is optional around literals and scanning stops at the
// first mismatch. A mismatch on the trailing unit word is not an error
// because no conversion follows it.
func scanClauses(input string, units []string) ([]int, error) {
	values := make([]int, 0, len(units))
	pos := 0
	for i, unit := range units {
		pos = skipSpace(input, pos)
		v, next, ok := scanInt(input, pos)
		if !ok {
			return values, fmt.Errorf("%w at offset %d", errBadInteger, pos)
		}
		values = append(values, v)
		pos = skipSpace(input, next)
		if !strings.HasPrefix(input[pos:], unit) {
			if i == len(units)-1 {
				return values, nil
			}
			return values, fmt.Errorf("%w at offset %d, want %q", errBadUnit, pos, unit)
		}
		pos += len(unit)
	}
	return values, nil
}

func skipSpace(s string, pos int) int {
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t' || s[pos] == '\n' || s[pos] == '\r') {
		pos++
	}
	return pos
}

func scanInt(s string, pos int) (int, int, bool) {
	start := pos
	if pos < len(s) && (s[pos] == '+' || s[pos] == '-') {
		pos++
	}
	digits := pos
	for pos < len(s) && s[pos] >= '0' && s[pos] <= '9' {
		pos++
	}
	if pos == digits {
		return 0, start, false
	}
	v, err := strconv.Atoi(s[start:pos])
	if err != nil {
		return 0, start, false
	}
	return v, pos, true
}

func parseGrammar(payload string) (models.Command, error) {
	tokens := strings.Fields(payload)
	if len(tokens) == 0 {
		return models.Command{}, &models.ParseFault{Input: payload, Reason: "no clauses", Err: ErrEmptyPayload}
	}

	cmd := models.Command{Kind: models.CommandSetDuration}
	next := 0 // lowest durationUnits index still allowed
	scanned := 0
	var fault error

	for i := 0; i < len(tokens); i += 2 {
		v, err := strconv.Atoi(tokens[i])
		if err != nil {
			fault = fmt.Errorf("%w: %q", errBadInteger, tokens[i])
			break
		}
		if i+1 >= len(tokens) {
			fault = fmt.Errorf("%w: missing after %q", errBadUnit, tokens[i])
			break
		}
		idx := unitIndex(tokens[i+1])
		if idx < next {
			fault = fmt.Errorf("%w: %q", errBadUnit, tokens[i+1])
			break
		}
		if scanned == 0 {
			for _, u := range durationUnits[:idx] {
				cmd.Fields |= u.field
			}
		}
		setField(&cmd.Duration, durationUnits[idx].field, v)
		cmd.Fields |= durationUnits[idx].field
		next = idx + 1
		scanned++
	}

	if fault == nil {
		// omitted units are zero
		cmd.Fields = models.AllFields
		return cmd, nil
	}
	pf := &models.ParseFault{Input: payload, Reason: fmt.Sprintf("scanned %d clauses", scanned), Err: fault}
	if scanned == 0 {
		return models.Command{}, pf
	}
	return cmd, pf
}

// unitIndex returns the durationUnits index for a unit word, or -1.
func unitIndex(word string) int {
	w := strings.ToLower(word)
	for i, u := range durationUnits {
		if w == u.name || w == strings.TrimSuffix(u.name, "s") {
			return i
		}
	}
	return -1
}

func setField(c *models.Counter, f models.FieldMask, v int) {
	switch f {
	case models.FieldDays:
		c.Days = v
	case models.FieldHours:
		c.Hours = v
	case models.FieldMinutes:
		c.Minutes = v
	case models.FieldSeconds:
		c.Seconds = v
	}
}

// FormatDuration renders c in the remote UI's phrase format, dropping
// leading zero units the way the UI does.
func FormatDuration(c models.Counter) string {
	switch {
	case c.Days != 0:
		return fmt.Sprintf("%d days %d hours %d minutes %d seconds", c.Days, c.Hours, c.Minutes, c.Seconds)
	case c.Hours != 0:
		return fmt.Sprintf("%d hours %d minutes %d seconds", c.Hours, c.Minutes, c.Seconds)
	case c.Minutes != 0:
		return fmt.Sprintf("%d minutes %d seconds", c.Minutes, c.Seconds)
	default:
		return fmt.Sprintf("%d seconds", c.Seconds)
	}
}
