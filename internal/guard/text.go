package guard

import (
	"encoding/base64"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/forPelevin/gomoji"
	"github.com/mtibben/confusables"
	"golang.org/x/text/unicode/norm"

	"strings"
)

// isASCIIOnly checks whether the string is pure ASCII (zero allocation).
func isASCIIOnly(text string) bool {
	for i := 0; i < len(text); i++ {
		if text[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// isBase64Char checks membership in the Base64 charset (A-Za-z0-9+/-_).
func isBase64Char(c byte) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '+' || c == '/' || c == '-' || c == '_'
}

// containsSuspiciousBase64 detects Base64 payloads smuggled inside the
// input. Only candidate runs are decoded, and a run counts as a payload
// only when the decoded bytes read as text.
func containsSuspiciousBase64(input string) bool {
	n := len(input)
	i := 0

	for i < n {
		if !isBase64Char(input[i]) {
			i++
			continue
		}

		start := i
		for i < n && isBase64Char(input[i]) {
			i++
		}

		paddingCount := 0
		for i < n && input[i] == '=' && paddingCount < 2 {
			i++
			paddingCount++
		}

		seqLen := i - start
		// runs under 20 chars are too short to carry a payload
		if seqLen < 20 {
			continue
		}

		match := input[start:i]
		decodedBytes, err := tryDecodeBase64(match)
		if err != nil {
			continue
		}

		if isReadableText(decodedBytes) {
			return true
		}
	}

	return false
}

// tryDecodeBase64 decodes after URL-safe substitution and pad fix-up.
func tryDecodeBase64(s string) ([]byte, error) {
	n := len(s)
	if n == 0 {
		return nil, fmt.Errorf("base64 decode: empty input")
	}

	padNeeded := (4 - n%4) % 4
	buf := make([]byte, n+padNeeded)

	for i := 0; i < n; i++ {
		switch s[i] {
		case '-':
			buf[i] = '+'
		case '_':
			buf[i] = '/'
		default:
			buf[i] = s[i]
		}
	}

	for i := 0; i < padNeeded; i++ {
		buf[n+i] = '='
	}

	decoded := make([]byte, base64.StdEncoding.DecodedLen(len(buf)))
	written, err := base64.StdEncoding.Decode(decoded, buf)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}
	return decoded[:written], nil
}

// isReadableText reports whether the bytes look like human text:
// valid UTF-8 with at least 90% printable characters.
func isReadableText(data []byte) bool {
	n := len(data)
	if n == 0 {
		return false
	}

	printableCount := 0
	totalChars := 0
	i := 0

	for i < n {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return false
		}
		i += size
		totalChars++

		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printableCount++
		}
	}

	return totalChars > 0 && printableCount*100 > totalChars*90
}

// normalizeText folds homoglyph and compatibility tricks before rule
// matching: NFC, confusables skeleton, NFKC, emoji and control removal.
func normalizeText(text string) string {
	if isASCIIOnly(text) {
		return stripControlChars(text)
	}

	nfcText := norm.NFC.String(text)
	skeleton := confusables.Skeleton(nfcText)
	normalized := norm.NFKC.String(skeleton)
	normalized = stripEmojis(normalized)
	return stripControlChars(normalized)
}

// stripEmojis removes emoji so decorated injections match plain rules.
func stripEmojis(text string) string {
	if !gomoji.ContainsEmoji(text) {
		return text
	}
	return gomoji.RemoveEmojis(text)
}

func stripControlChars(text string) string {
	hasControl := false
	for _, r := range text {
		if unicode.Is(unicode.Cf, r) || unicode.Is(unicode.Cc, r) {
			hasControl = true
			break
		}
	}
	if !hasControl {
		return text
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range text {
		if unicode.Is(unicode.Cf, r) || unicode.Is(unicode.Cc, r) {
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}
