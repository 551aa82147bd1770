package sms

import "strings"

// textEscapes lists the characters the gateway expects percent-encoded in
// the message text. Everything else is sent verbatim.
var textEscapes = map[rune]string{
	'&':  "%26",
	'+':  "%2B",
	'%':  "%25",
	'#':  "%23",
	' ':  "%20",
	'=':  "%3D",
	'?':  "%3F",
	';':  "%3B",
	'\n': "%0A",
}

// URLEncode percent-encodes the reserved characters of an SMS body.
//
//	URLEncode("a&b c") == "a%26b%20c"
func URLEncode(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if esc, ok := textEscapes[r]; ok {
			b.WriteString(esc)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
