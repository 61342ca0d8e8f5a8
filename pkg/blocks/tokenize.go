package blocks

// Tokenize scans content in a single pass and returns its classified
// block sequence. The returned spans are contiguous, non-overlapping
// and cover [0, len(content)); empty content yields a nil slice and
// content without special runs yields exactly one text block.
//
// Classification never fails: any candidate that does not survive its
// shape check stays inside the surrounding text run. tagCount is the
// length of the note's tag array and bounds mention indices.
func Tokenize(content []byte, tagCount int) []Block {
	if len(content) == 0 {
		return nil
	}

	var blks []Block
	lx := &lexer{buf: content}
	textStart := 0

	for lx.pos < len(lx.buf) {
		var blk Block
		ok := false

		switch c := lx.buf[lx.pos]; c {
		case '#':
			if lx.boundary() {
				// "#[n]" first; a '[' can never start a hashtag, so
				// the two forms cannot both match.
				blk, ok = lx.scanMentionIndex(tagCount)
				if !ok {
					blk, ok = lx.scanHashtag()
				}
			}
		case 'h', 'H', 'w', 'W':
			if lx.boundary() {
				blk, ok = lx.scanURL()
			}
		case 'n':
			if lx.boundary() {
				blk, ok = lx.scanBech32()
			}
		case 'l', 'L':
			if lx.boundary() {
				blk, ok = lx.scanInvoice()
			}
		}

		if !ok {
			lx.pos++
			continue
		}

		if start := int(blk.Span.Start); start > textStart {
			blks = append(blks, Block{Type: BlockText, Span: span(textStart, start)})
		}
		blks = append(blks, blk)
		lx.pos = int(blk.Span.End())
		textStart = lx.pos
	}

	if textStart < len(content) {
		blks = append(blks, Block{Type: BlockText, Span: span(textStart, len(content))})
	}

	return blks
}
