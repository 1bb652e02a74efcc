package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Timestamp is an instant on the media timeline, expressed as a signed
// seconds:nanoseconds pair. The sign is kept separate from the magnitude so
// that instants between -1s and 0s (e.g. "-0:500000000") are representable.
type Timestamp struct {
	Negative bool
	Seconds  int64 // magnitude, >= 0
	Nanos    int32 // magnitude, 0..999_999_999
}

// Compare returns -1, 0 or 1 if t is before, equal to, or after other.
func (t Timestamp) Compare(other Timestamp) int {
	if t.Negative != other.Negative {
		if t.isZero() && other.isZero() {
			return 0
		}
		if t.Negative {
			return -1
		}
		return 1
	}

	cmp := compareMagnitude(t, other)
	if t.Negative {
		return -cmp
	}
	return cmp
}

func compareMagnitude(a, b Timestamp) int {
	switch {
	case a.Seconds < b.Seconds:
		return -1
	case a.Seconds > b.Seconds:
		return 1
	case a.Nanos < b.Nanos:
		return -1
	case a.Nanos > b.Nanos:
		return 1
	}
	return 0
}

func (t Timestamp) isZero() bool {
	return t.Seconds == 0 && t.Nanos == 0
}

// String renders the canonical "sec:nanos" form, e.g. "10:0" or "-0:500000000".
func (t Timestamp) String() string {
	sign := ""
	if t.Negative && !t.isZero() {
		sign = "-"
	} else if t.Negative {
		// -0:0 normalizes to 0:0
		sign = ""
	}
	return fmt.Sprintf("%s%d:%d", sign, t.Seconds, t.Nanos)
}

// Decimal renders the timestamp as an exact decimal number of seconds with a
// nine-digit fractional part ("10.000000005"). Used for NUMERIC(28,9) columns
// so database ordering matches Compare.
func (t Timestamp) Decimal() string {
	sign := ""
	if t.Negative && !t.isZero() {
		sign = "-"
	}
	return fmt.Sprintf("%s%d.%09d", sign, t.Seconds, t.Nanos)
}

// Float returns the timestamp as seconds in floating point. Lossy for very
// large magnitudes; use Decimal for storage.
func (t Timestamp) Float() float64 {
	v := float64(t.Seconds) + float64(t.Nanos)/1e9
	if t.Negative {
		return -v
	}
	return v
}

// ParseTimestamp parses a "sign? seconds ':' nanos" string.
func ParseTimestamp(s string) (Timestamp, error) {
	m := timestampRe.FindStringSubmatch(s)
	if m == nil {
		return Timestamp{}, NewMalformedRangeError(s, "timestamp must be sec:nanos")
	}
	return timestampFromParts(s, m[1] == "-", m[2], m[3])
}

var (
	timestampRe = regexp.MustCompile(`^(-)?(\d+):(\d+)$`)

	// Full range grammar: optional start marker, optional start timestamp,
	// optional "_" separator with optional end timestamp, optional end marker.
	timeRangeRe = regexp.MustCompile(`^([\[\(])?(?:(-)?(\d+):(\d+))?(_)?(?:(-)?(\d+):(\d+))?([\]\)])?$`)
)

func timestampFromParts(input string, negative bool, secStr, nanoStr string) (Timestamp, error) {
	if len(nanoStr) > 9 {
		return Timestamp{}, NewMalformedRangeError(input, "fractional part exceeds 9 digits")
	}

	sec, err := strconv.ParseInt(secStr, 10, 64)
	if err != nil {
		return Timestamp{}, NewMalformedRangeError(input, "seconds out of range")
	}

	nanos, err := strconv.ParseInt(nanoStr, 10, 32)
	if err != nil || nanos > 999_999_999 {
		return Timestamp{}, NewMalformedRangeError(input, "nanoseconds out of range")
	}

	ts := Timestamp{Negative: negative, Seconds: sec, Nanos: int32(nanos)}
	if ts.isZero() {
		ts.Negative = false
	}
	return ts, nil
}

// TimeRange is an interval of Timestamps with independently inclusive or
// exclusive bounds. A nil bound is open-ended (-inf / +inf). The zero value
// is the eternity range. Immutable by convention: operations return new
// values.
//
// Inclusivity flags for absent bounds are normalized to true so that value
// equality on TimeRange behaves as range equality.
type TimeRange struct {
	Start          *Timestamp
	End            *Timestamp
	StartInclusive bool
	EndInclusive   bool

	// Empty marks the canonical empty range "()", which contains no instants.
	Empty bool
}

// EternityRange spans all of time.
func EternityRange() TimeRange {
	return TimeRange{StartInclusive: true, EndInclusive: true}
}

// EmptyRange contains no instants; serialized as "()".
func EmptyRange() TimeRange {
	return TimeRange{Empty: true}
}

// NewTimeRange constructs a validated TimeRange. If both bounds are present,
// start must not exceed end, and equal bounds are only valid when both ends
// are inclusive (the single-instant range).
func NewTimeRange(start, end *Timestamp, startInclusive, endInclusive bool) (TimeRange, error) {
	r := TimeRange{
		Start:          start,
		End:            end,
		StartInclusive: startInclusive,
		EndInclusive:   endInclusive,
	}
	if start == nil {
		r.StartInclusive = true
	}
	if end == nil {
		r.EndInclusive = true
	}

	if start != nil && end != nil {
		switch cmp := start.Compare(*end); {
		case cmp > 0:
			return TimeRange{}, NewMalformedRangeError(r.String(), "start is after end")
		case cmp == 0 && !(r.StartInclusive && r.EndInclusive):
			return TimeRange{}, NewMalformedRangeError(r.String(), "zero-length range must be inclusive at both ends")
		}
	}

	return r, nil
}

// ParseTimeRange parses the textual range form, e.g. "[0:0_10:0)", "[10:0_",
// "_10:0)", "5:0" (single instant), "_" (eternity) or "()" (empty).
func ParseTimeRange(s string) (TimeRange, error) {
	if s == "()" {
		return EmptyRange(), nil
	}

	m := timeRangeRe.FindStringSubmatch(s)
	if m == nil {
		return TimeRange{}, NewMalformedRangeError(s, "does not match range grammar")
	}

	var (
		startMarker = m[1]
		endMarker   = m[9]
		hasSep      = m[5] == "_"
	)

	var start, end *Timestamp
	if m[3] != "" {
		ts, err := timestampFromParts(s, m[2] == "-", m[3], m[4])
		if err != nil {
			return TimeRange{}, err
		}
		start = &ts
	}
	if m[7] != "" {
		ts, err := timestampFromParts(s, m[6] == "-", m[7], m[8])
		if err != nil {
			return TimeRange{}, err
		}
		end = &ts
	}

	if start == nil && end == nil && !hasSep {
		// Bare markers like "[", ")" or "[)"; only "()" denotes a range
		// without timestamps, and it is handled above.
		return TimeRange{}, NewMalformedRangeError(s, "range has no bounds")
	}

	if !hasSep && end != nil {
		// Grammar artifact: "10:0)" parses the timestamp into the end slot
		// only when a separator is present.
		return TimeRange{}, NewMalformedRangeError(s, "end bound without separator")
	}

	if !hasSep && start != nil {
		// Single instant: both bounds are the timestamp, inclusive.
		if startMarker == "(" || endMarker == ")" {
			return TimeRange{}, NewMalformedRangeError(s, "single-instant range must be inclusive")
		}
		inst := *start
		return rangeForInput(s, &inst, &inst, true, true)
	}

	startInclusive := startMarker != "("
	endInclusive := endMarker == "]"

	return rangeForInput(s, start, end, startInclusive, endInclusive)
}

// rangeForInput builds the range, rewriting invariant errors so they name
// the original input string rather than the normalized form.
func rangeForInput(input string, start, end *Timestamp, startInclusive, endInclusive bool) (TimeRange, error) {
	out, err := NewTimeRange(start, end, startInclusive, endInclusive)
	if err != nil {
		var mre *MalformedRangeError
		if errors.As(err, &mre) {
			return TimeRange{}, NewMalformedRangeError(input, mre.Reason)
		}
		return TimeRange{}, err
	}
	return out, nil
}

// String renders the normalized form: both bound markers are always printed
// for present bounds, absent bounds print nothing, eternity is "_" and the
// empty range is "()". Parsing a normalized string yields an equal TimeRange.
func (r TimeRange) String() string {
	if r.Empty {
		return "()"
	}

	var b strings.Builder
	if r.Start != nil {
		if r.StartInclusive {
			b.WriteByte('[')
		} else {
			b.WriteByte('(')
		}
		b.WriteString(r.Start.String())
	}
	b.WriteByte('_')
	if r.End != nil {
		b.WriteString(r.End.String())
		if r.EndInclusive {
			b.WriteByte(']')
		} else {
			b.WriteByte(')')
		}
	}
	return b.String()
}

// IsEmpty reports whether the range contains no instants.
func (r TimeRange) IsEmpty() bool {
	return r.Empty
}

// IsEternity reports whether both bounds are absent.
func (r TimeRange) IsEternity() bool {
	return !r.Empty && r.Start == nil && r.End == nil
}

// ContainsInstant reports whether t lies within the range, honoring the
// per-bound inclusivity flags.
func (r TimeRange) ContainsInstant(t Timestamp) bool {
	if r.Empty {
		return false
	}
	if r.Start != nil {
		cmp := t.Compare(*r.Start)
		if cmp < 0 || (cmp == 0 && !r.StartInclusive) {
			return false
		}
	}
	if r.End != nil {
		cmp := t.Compare(*r.End)
		if cmp > 0 || (cmp == 0 && !r.EndInclusive) {
			return false
		}
	}
	return true
}

// Overlaps reports whether the two ranges share at least one instant.
func (r TimeRange) Overlaps(other TimeRange) bool {
	if r.Empty || other.Empty {
		return false
	}
	return boundsIntersect(r, other) && boundsIntersect(other, r)
}

// boundsIntersect checks a.Start against b.End (absent bounds always pass).
func boundsIntersect(a, b TimeRange) bool {
	if a.Start == nil || b.End == nil {
		return true
	}
	cmp := a.Start.Compare(*b.End)
	if cmp > 0 {
		return false
	}
	if cmp == 0 {
		return a.StartInclusive && b.EndInclusive
	}
	return true
}

// Intersect returns the tightest range contained in both inputs. The second
// return value is false when the ranges are disjoint. When bound values are
// equal the result's inclusivity is the logical AND of the inputs' flags;
// otherwise the tighter bound's flag is inherited.
func (r TimeRange) Intersect(other TimeRange) (TimeRange, bool) {
	if !r.Overlaps(other) {
		return TimeRange{}, false
	}

	start, startIncl := tighterLower(r.Start, r.StartInclusive, other.Start, other.StartInclusive)
	end, endIncl := tighterUpper(r.End, r.EndInclusive, other.End, other.EndInclusive)

	out, err := NewTimeRange(start, end, startIncl, endIncl)
	if err != nil {
		// Degenerate touch (equal bounds, mixed inclusivity) has no width.
		return TimeRange{}, false
	}
	return out, true
}

func tighterLower(a *Timestamp, aIncl bool, b *Timestamp, bIncl bool) (*Timestamp, bool) {
	switch {
	case a == nil && b == nil:
		return nil, true
	case a == nil:
		return b, bIncl
	case b == nil:
		return a, aIncl
	}
	switch cmp := a.Compare(*b); {
	case cmp > 0:
		return a, aIncl
	case cmp < 0:
		return b, bIncl
	}
	return a, aIncl && bIncl
}

func tighterUpper(a *Timestamp, aIncl bool, b *Timestamp, bIncl bool) (*Timestamp, bool) {
	switch {
	case a == nil && b == nil:
		return nil, true
	case a == nil:
		return b, bIncl
	case b == nil:
		return a, aIncl
	}
	switch cmp := a.Compare(*b); {
	case cmp < 0:
		return a, aIncl
	case cmp > 0:
		return b, bIncl
	}
	return a, aIncl && bIncl
}

// CompareOrder defines the segment ordering within a flow: by start bound
// value with an absent start sorting first, then inclusive before exclusive
// at equal values.
func (r TimeRange) CompareOrder(other TimeRange) int {
	switch {
	case r.Start == nil && other.Start == nil:
		return 0
	case r.Start == nil:
		return -1
	case other.Start == nil:
		return 1
	}
	if cmp := r.Start.Compare(*other.Start); cmp != 0 {
		return cmp
	}
	switch {
	case r.StartInclusive == other.StartInclusive:
		return 0
	case r.StartInclusive:
		return -1
	}
	return 1
}

// DurationSeconds returns the range width in seconds. The second return
// value is false for open-ended or empty ranges, where no finite duration
// exists.
func (r TimeRange) DurationSeconds() (float64, bool) {
	if r.Empty || r.Start == nil || r.End == nil {
		return 0, false
	}
	return r.End.Float() - r.Start.Float(), true
}
