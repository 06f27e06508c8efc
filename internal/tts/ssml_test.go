package tts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeTextPreservesWhitelistedTags(t *testing.T) {
	cases := []string{
		`<break time="200ms"/>`,
		`<speak>hello</speak>`,
		`<prosody rate="+10%" pitch="-5%">slow down</prosody>`,
		`<emphasis level="strong">really</emphasis>`,
		`<voice name="zh-CN-XiaoxiaoNeural">hi</voice>`,
		`<say-as interpret-as="date">2024-01-02</say-as>`,
		`<phoneme alphabet="ipa" ph="tomato">tomato</phoneme>`,
		`<audio src="x.mp3">fallback</audio>`,
		`<p>one</p><s>two</s>`,
		`<sub alias="World Wide Web">WWW</sub>`,
		`<mstts:express-as style="cheerful">yay</mstts:express-as>`,
	}
	for _, input := range cases {
		assert.Equal(t, input, EscapeText(input), "input: %s", input)
	}
}

func TestEscapeTextEscapesSpecialCharacters(t *testing.T) {
	assert.Equal(t, "a&lt;b&gt;c", EscapeText("a<b>c"))
	assert.Equal(t, "fish &amp; chips", EscapeText("fish & chips"))
	assert.Equal(t, "&apos;quoted&apos; &quot;text&quot;", EscapeText(`'quoted' "text"`))
	assert.Equal(t, "plain text unchanged", EscapeText("plain text unchanged"))
}

func TestEscapeTextMixedContent(t *testing.T) {
	input := `<prosody rate="+10%">5 < 6 & 7</prosody>`
	want := `<prosody rate="+10%">5 &lt; 6 &amp; 7</prosody>`
	assert.Equal(t, want, EscapeText(input))
}

func TestEscapeTextStrayTagIsEscaped(t *testing.T) {
	// <script> is not whitelisted and must not survive.
	got := EscapeText(`<script>alert(1)</script><break time="1s"/>`)
	assert.Equal(t, `&lt;script&gt;alert(1)&lt;/script&gt;<break time="1s"/>`, got)
}

func TestEscapeTextManyTagsStayUnique(t *testing.T) {
	input := strings.Repeat(`<p>x</p>`, 20)
	assert.Equal(t, input, EscapeText(input))
}

func TestBuildSSMLEnvelope(t *testing.T) {
	got := BuildSSML("你好", "zh-CN-XiaoxiaoNeural", 10, -5, "cheerful")

	assert.True(t, strings.HasPrefix(got, `<speak xmlns="http://www.w3.org/2001/10/synthesis" xmlns:mstts="http://www.w3.org/2001/mstts" version="1.0" xml:lang="zh-CN">`))
	assert.Contains(t, got, `<voice name="zh-CN-XiaoxiaoNeural">`)
	assert.Contains(t, got, `<mstts:express-as style="cheerful" styledegree="1.0" role="default">`)
	assert.Contains(t, got, `<prosody rate="10%" pitch="-5%" volume="50">你好</prosody>`)
	assert.True(t, strings.HasSuffix(got, "</speak>"))
}

func TestBuildSSMLEscapesText(t *testing.T) {
	got := BuildSSML("a < b", "v", 0, 0, "general")
	assert.Contains(t, got, `>a &lt; b</prosody>`)
	assert.NotContains(t, got, ">a < b<")
}
