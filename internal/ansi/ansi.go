// Package ansi strips ECMA-48 control sequences from PTY output, producing
// the "rendered" text that the supervisor's pattern matcher runs against
// while the raw bytes are still written to the terminal untouched.
package ansi

import "strings"

// parserState tracks progress through an ECMA-48 escape sequence.
type parserState int

const (
	stNormal          parserState = iota
	stEscSeen                     // ESC received, waiting for dispatch byte
	stEscIntermediate             // ESC + intermediate byte (0x20-0x2F) — nF escape
	stCSI                         // Inside CSI sequence (ESC [)
	stOSC                         // Inside OSC sequence (ESC ])
	stOSCEsc                      // ESC seen inside OSC (possible ST = ESC \)
	stStringSeq                   // Inside DCS/PM/APC/SOS string (ESC P, ESC ^, ESC _, ESC X)
	stStringEsc                   // ESC seen inside string sequence (possible ST)
)

// Stripper removes ANSI escape sequences incrementally, carrying partial
// escape sequences across Feed calls. PTY reads land in arbitrary-sized
// chunks and a sequence can straddle a read boundary, so a one-shot Strip
// is not enough for a long-running supervisor loop — it needs a stripper
// that remembers where it left off.
//
// Handles CSI (ESC [), OSC (ESC ]), DCS (ESC P), PM (ESC ^), APC (ESC _),
// SOS (ESC X), nF escapes (ESC + 0x20-0x2F intermediate bytes + final byte),
// and Fe/Fp/Fs two-byte escapes (ESC followed by 0x30-0x7E). CSI final
// bytes span the full ECMA-48 range 0x40-0x7E, not just letters, so
// sequences ending in ~, @, etc. are consumed correctly.
//
// Not safe for concurrent use; callers serialize access the way the
// supervisor already serializes all reads from a single PtyChannel.
type Stripper struct {
	state  parserState
	escBuf []rune
}

// NewStripper returns a Stripper ready to consume its first chunk.
func NewStripper() *Stripper {
	return &Stripper{}
}

// Feed strips s and returns the plain-text portion. Bytes belonging to an
// escape sequence still open at the end of s are buffered internally: a
// later Feed call that completes the sequence discards them, and Flush
// emits them as plain text if the sequence never closes.
func (p *Stripper) Feed(s string) string {
	var b strings.Builder

	for _, r := range s {
		switch p.state {
		case stNormal:
			if r == '\x1b' {
				p.state = stEscSeen
				p.escBuf = p.escBuf[:0]
				p.escBuf = append(p.escBuf, r)

				continue
			}

			b.WriteRune(r)

		case stEscSeen:
			p.escBuf = append(p.escBuf, r)

			switch {
			case r == '[':
				p.state = stCSI
			case r == ']':
				p.state = stOSC
			case r == 'P', r == 'X', r == '^', r == '_':
				p.state = stStringSeq
			case r >= 0x20 && r <= 0x2F:
				// nF escape: intermediate byte(s) followed by final byte
				p.state = stEscIntermediate
			case r >= 0x30 && r <= 0x7E:
				// Fp (DEC private like ESC7/ESC8), Fe, or Fs — two-byte escape
				p.state = stNormal
				p.escBuf = p.escBuf[:0]
			default:
				// Not a recognized escape introducer — emit buffered bytes
				b.WriteString(string(p.escBuf))
				p.escBuf = p.escBuf[:0]
				p.state = stNormal
			}

		case stEscIntermediate:
			p.escBuf = append(p.escBuf, r)

			switch {
			case r >= 0x20 && r <= 0x2F:
				// more intermediate bytes — stay in this state
			case r >= 0x30 && r <= 0x7E:
				p.state = stNormal
				p.escBuf = p.escBuf[:0]
			default:
				b.WriteString(string(p.escBuf))
				p.escBuf = p.escBuf[:0]
				p.state = stNormal
			}

		case stCSI:
			p.escBuf = append(p.escBuf, r)

			if r >= 0x40 && r <= 0x7E {
				p.state = stNormal
				p.escBuf = p.escBuf[:0]
			}

		case stOSC:
			p.escBuf = append(p.escBuf, r)

			switch r {
			case '\x07':
				p.state = stNormal
				p.escBuf = p.escBuf[:0]
			case '\x1b':
				p.state = stOSCEsc
			}

		case stOSCEsc:
			p.escBuf = append(p.escBuf, r)

			if r == '\\' {
				p.state = stNormal
				p.escBuf = p.escBuf[:0]
			} else {
				p.state = stOSC
			}

		case stStringSeq:
			p.escBuf = append(p.escBuf, r)

			if r == '\x1b' {
				p.state = stStringEsc
			}

		case stStringEsc:
			p.escBuf = append(p.escBuf, r)

			if r == '\\' {
				p.state = stNormal
				p.escBuf = p.escBuf[:0]
			} else {
				p.state = stStringSeq
			}
		}
	}

	return b.String()
}

// FeedBytes is Feed for a raw byte chunk straight off a PtyChannel read.
func (p *Stripper) FeedBytes(b []byte) []byte {
	return []byte(p.Feed(string(b)))
}

// Flush emits any bytes still buffered mid-escape-sequence and resets the
// stripper to its initial state. Call it when giving up on a sequence ever
// closing (e.g. the supervisor is shutting down).
func (p *Stripper) Flush() string {
	s := string(p.escBuf)
	p.escBuf = p.escBuf[:0]
	p.state = stNormal

	return s
}

// Strip removes ANSI escape sequences from a single, self-contained string.
// It is equivalent to feeding s to a fresh Stripper and flushing afterwards,
// so a sequence left open at the end of s is emitted verbatim rather than
// silently discarded.
func Strip(s string) string {
	p := NewStripper()
	out := p.Feed(s)

	return out + p.Flush()
}

// StripBytes is Strip for a raw byte slice.
func StripBytes(b []byte) []byte {
	return []byte(Strip(string(b)))
}
