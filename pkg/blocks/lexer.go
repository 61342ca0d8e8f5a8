package blocks

// The lexer makes a single left-to-right pass over the content buffer
// and tries to recognize a special run at each candidate byte. A
// recognition attempt that fails never consumes input, so every byte
// that is not part of a special run ends up inside a text run and the
// produced spans always tile the whole buffer.

const mentionPrefix = "nostr:"

// bolt11: prefix, optional amount, '1', then at least a timestamp and
// a 104-character signature in the data part.
const minInvoiceDataLen = 100

var bech32Valid [256]bool

func init() {
	for _, c := range "qpzry9x8gf2tvdw0s3jn54khce6mua7l" {
		bech32Valid[c] = true
	}
}

// isWordByte treats every byte of a multi-byte UTF-8 sequence as a
// word character, so runs never split a codepoint.
func isWordByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '_':
		return true
	default:
		return c >= 0x80
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// isBech32Word reports bytes that may appear anywhere in a bech32
// entity, separator and hrp included.
func isBech32Word(c byte) bool {
	return (c >= 'a' && c <= 'z') || isDigit(c)
}

// isURLEnd marks the bytes that terminate a URL run: whitespace,
// controls, quotes and the closing bracket class.
func isURLEnd(c byte) bool {
	if c <= ' ' {
		return true
	}
	switch c {
	case '"', '\'', '<', '>', ')', ']', '}', '`':
		return true
	}

	return false
}

type lexer struct {
	buf []byte
	pos int
}

// boundary reports whether pos sits at the start of a word: either at
// the beginning of the buffer or right after a non-word byte. Special
// runs are only recognized at word boundaries.
func (lx *lexer) boundary() bool {
	return lx.pos == 0 || !isWordByte(lx.buf[lx.pos-1])
}

// match reports an exact prefix of s at pos.
func (lx *lexer) match(s string) bool {
	if lx.pos+len(s) > len(lx.buf) {
		return false
	}
	return string(lx.buf[lx.pos:lx.pos+len(s)]) == s
}

// matchFold reports an ASCII case-insensitive prefix of s at pos.
// s must be lowercase.
func (lx *lexer) matchFold(s string) bool {
	if lx.pos+len(s) > len(lx.buf) {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := lx.buf[lx.pos+i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != s[i] {
			return false
		}
	}

	return true
}

// scanHashtag recognizes '#' followed by at least one word character.
// The span includes the marker; Block.Text strips it.
func (lx *lexer) scanHashtag() (Block, bool) {
	i := lx.pos + 1
	if i >= len(lx.buf) || !isWordByte(lx.buf[i]) {
		return Block{}, false
	}
	for i < len(lx.buf) && isWordByte(lx.buf[i]) {
		i++
	}

	return Block{Type: BlockHashtag, Span: span(lx.pos, i)}, true
}

// scanMentionIndex recognizes the legacy "#[n]" tag backreference.
// An index that does not resolve against the note's tag list degrades
// to text. A negative tagCount skips resolution.
func (lx *lexer) scanMentionIndex(tagCount int) (Block, bool) {
	i := lx.pos + 1
	if i >= len(lx.buf) || lx.buf[i] != '[' {
		return Block{}, false
	}
	i++
	start := i
	idx := 0
	for i < len(lx.buf) && isDigit(lx.buf[i]) {
		if i-start >= 6 {
			return Block{}, false
		}
		idx = idx*10 + int(lx.buf[i]-'0')
		i++
	}
	if i == start || i >= len(lx.buf) || lx.buf[i] != ']' {
		return Block{}, false
	}
	if tagCount >= 0 && idx >= tagCount {
		return Block{}, false
	}

	return Block{Type: BlockMentionIndex, Span: span(lx.pos, i+1), Mention: uint32(idx)}, true
}

var urlSchemes = []string{"https://", "http://", "wss://", "ws://"}

// scanURL recognizes a scheme prefix and consumes until a terminator
// byte. The span covers the scheme.
func (lx *lexer) scanURL() (Block, bool) {
	var scheme string
	for _, s := range urlSchemes {
		if lx.matchFold(s) {
			scheme = s
			break
		}
	}
	if scheme == "" {
		return Block{}, false
	}

	i := lx.pos + len(scheme)
	start := i
	for i < len(lx.buf) && !isURLEnd(lx.buf[i]) {
		i++
	}
	if i == start {
		return Block{}, false
	}

	return Block{Type: BlockURL, Span: span(lx.pos, i)}, true
}

// Longest first, so "note" cannot shadow a longer hrp.
var mentionHRPs = []string{"nprofile", "nevent", "nrelay", "naddr", "note", "npub", "nsec"}

// scanBech32 recognizes a "nostr:" entity reference: a known hrp, the
// '1' separator and a bech32 data part. Full bech32 validation
// (checksum, payload) is out of scope; a run that fails the shape
// check degrades to text. The span covers the prefix; Block.Text
// strips it.
func (lx *lexer) scanBech32() (Block, bool) {
	if !lx.match(mentionPrefix) {
		return Block{}, false
	}

	i := lx.pos + len(mentionPrefix)
	start := i
	for i < len(lx.buf) && isBech32Word(lx.buf[i]) {
		i++
	}
	if !validBech32Entity(lx.buf[start:i]) {
		return Block{}, false
	}

	return Block{Type: BlockMentionBech32, Span: span(lx.pos, i)}, true
}

func validBech32Entity(b []byte) bool {
	var hrp string
	for _, h := range mentionHRPs {
		if len(b) >= len(h) && string(b[:len(h)]) == h {
			hrp = h
			break
		}
	}
	if hrp == "" {
		return false
	}
	if len(b) <= len(hrp) || b[len(hrp)] != '1' {
		return false
	}
	data := b[len(hrp)+1:]
	if len(data) < 10 {
		return false
	}
	for _, c := range data {
		if !bech32Valid[c] {
			return false
		}
	}

	return true
}

// scanInvoice recognizes a bolt11 payment invoice: "lnbc" or "lntb",
// an optional amount with multiplier, the '1' separator and a long
// bech32 data run. Amount and payload are not interpreted.
func (lx *lexer) scanInvoice() (Block, bool) {
	if !lx.matchFold("lnbc") && !lx.matchFold("lntb") {
		return Block{}, false
	}

	i := lx.pos + 4
	for i < len(lx.buf) && isDigit(lx.buf[i]) {
		i++
	}
	if i < len(lx.buf) {
		switch lx.buf[i] {
		case 'm', 'u', 'n', 'p':
			i++
		}
	}
	if i >= len(lx.buf) || lx.buf[i] != '1' {
		return Block{}, false
	}
	i++
	start := i
	for i < len(lx.buf) && bech32Valid[lx.buf[i]] {
		i++
	}
	if i-start < minInvoiceDataLen {
		return Block{}, false
	}

	return Block{Type: BlockInvoice, Span: span(lx.pos, i)}, true
}
