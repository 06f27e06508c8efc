package tts

import (
	"fmt"
	"regexp"
	"strings"
)

// preserveTags lists the SSML fragments callers may embed in their text.
// Matches are swapped for placeholders before escaping and restored after,
// so the tags reach the synthesis backend byte-for-byte. Order matters:
// earlier patterns claim their matches first.
var preserveTags = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"break", regexp.MustCompile(`<break\s+[^>]*/>`)},
	{"speak", regexp.MustCompile(`<speak>|</speak>`)},
	{"prosody", regexp.MustCompile(`<prosody\s+[^>]*>|</prosody>`)},
	{"emphasis", regexp.MustCompile(`<emphasis\s+[^>]*>|</emphasis>`)},
	{"voice", regexp.MustCompile(`<voice\s+[^>]*>|</voice>`)},
	{"say-as", regexp.MustCompile(`<say-as\s+[^>]*>|</say-as>`)},
	{"phoneme", regexp.MustCompile(`<phoneme\s+[^>]*>|</phoneme>`)},
	{"audio", regexp.MustCompile(`<audio\s+[^>]*>|</audio>`)},
	{"p", regexp.MustCompile(`<p>|</p>`)},
	{"s", regexp.MustCompile(`<s>|</s>`)},
	{"sub", regexp.MustCompile(`<sub\s+[^>]*>|</sub>`)},
	{"mstts", regexp.MustCompile(`<mstts:[^>]*>|</mstts:[^>]*>`)},
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
)

// EscapeText XML-escapes text while leaving whitelisted SSML tags untouched.
// Placeholder tokens carry the tag name plus a counter that increments across
// all matches of one call, so they stay unique within that call.
func EscapeText(text string) string {
	placeholders := make(map[string]string)
	counter := 0

	processed := text
	for _, tag := range preserveTags {
		processed = tag.pattern.ReplaceAllStringFunc(processed, func(match string) string {
			placeholder := fmt.Sprintf("__SSML_PLACEHOLDER_%s_%d__", tag.name, counter)
			counter++
			placeholders[placeholder] = match
			return placeholder
		})
	}

	escaped := xmlEscaper.Replace(processed)

	for placeholder, tag := range placeholders {
		escaped = strings.Replace(escaped, placeholder, tag, 1)
	}
	return escaped
}

// BuildSSML wraps text in the envelope the synthesis backend expects: voice
// selector, expressive style at fixed intensity, and prosody with rate and
// pitch as percentages. Volume is pinned at 50.
func BuildSSML(text, voice string, rate, pitch int, style string) string {
	return fmt.Sprintf(
		`<speak xmlns="http://www.w3.org/2001/10/synthesis" xmlns:mstts="http://www.w3.org/2001/mstts" version="1.0" xml:lang="zh-CN"> <voice name="%s"> <mstts:express-as style="%s" styledegree="1.0" role="default"> <prosody rate="%d%%" pitch="%d%%" volume="50">%s</prosody> </mstts:express-as> </voice> </speak>`,
		voice, style, rate, pitch, EscapeText(text),
	)
}
