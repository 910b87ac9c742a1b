package domain

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

const (
	PrefixIndustry = "TC"
	PrefixDefault  = "CP"

	customerCodeLength = 4
	sequenceWidth      = 5

	// MaxSequence is the largest sequence that fits the serial format.
	MaxSequence = 99999
)

// TierPrefix maps a customer tier onto the two serial prefixes. Only the
// industry tier is distinguished.
func TierPrefix(customerTier string) string {
	if customerTier == "industry" {
		return PrefixIndustry
	}
	return PrefixDefault
}

// CustomerCode keeps the first four ASCII letters and digits of customerID,
// uppercased and right-padded with '0'. Different customers may share a code.
func CustomerCode(customerID string) string {
	var b strings.Builder
	for _, r := range customerID {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		if b.Len() == customerCodeLength {
			break
		}
	}
	code := b.String()
	return code + strings.Repeat("0", customerCodeLength-len(code))
}

// SerialPrefix is the part of a serial that scopes its sequence.
func SerialPrefix(customerID, customerTier string) string {
	return TierPrefix(customerTier) + CustomerCode(customerID)
}

// NextSerial computes the serial following the highest sequence among
// priorSerials sharing this customer's prefix. Serials with another prefix
// are ignored and a malformed sequence counts as zero. legacyStartSerial is
// accepted for older callers and has no effect on the result.
func NextSerial(customerID, customerTier, legacyStartSerial string, priorSerials []string) string {
	_ = legacyStartSerial

	prefix := SerialPrefix(customerID, customerTier)
	var highest int64
	for _, serial := range priorSerials {
		if !strings.HasPrefix(serial, prefix) {
			continue
		}
		if seq := ParseSequence(serial); seq > highest {
			highest = seq
		}
	}
	return FormatSerial(prefix, highest+1)
}

// ParseSequence reads the trailing five characters of serial as a number.
// Anything unparsable yields zero.
func ParseSequence(serial string) int64 {
	if len(serial) < sequenceWidth {
		return 0
	}
	tail := serial[len(serial)-sequenceWidth:]
	for _, r := range tail {
		if r < '0' || r > '9' {
			return 0
		}
	}
	seq, err := strconv.ParseInt(tail, 10, 64)
	if err != nil {
		return 0
	}
	return seq
}

func FormatSerial(prefix string, seq int64) string {
	return fmt.Sprintf("%s%0*d", prefix, sequenceWidth, seq)
}
