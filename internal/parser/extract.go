package parser

// ExtractJSON returns the first balanced {...} or [...] span of text that is
// syntactically valid JSON. Opening delimiters are tried in order, so an
// unclosed brace in surrounding prose does not hide a later plan. A balanced
// span that is not valid JSON is skipped whole: the scan resumes after its
// closer and never returns a fragment nested inside it. Delimiters inside
// string literals are ignored.
func ExtractJSON(text string) (string, bool) {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' && text[start] != '[' {
			continue
		}
		end, ok := balancedEnd(text, start)
		if !ok {
			continue
		}
		candidate := text[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, true
		}
		start = end
	}
	return "", false
}

// balancedEnd returns the index of the delimiter closing text[start].
func balancedEnd(text string, start int) (int, bool) {
	open := text[start]
	closer := byte('}')
	if open == '[' {
		closer = ']'
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
