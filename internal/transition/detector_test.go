package transition

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectTransitionPhrasesNormalization(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"mixed case with punctuation", "Let's MOVE ON to the next section!", true},
		{"no apostrophe", "lets move on to the next section", true},
		{"curly apostrophe", "Great answer. Let’s move on to the next section.", true},
		{"question form", "Shall we continue?", true},
		{"embedded in longer text", "Thanks for sharing that, I think we're ready to move on.", true},
		{"unrelated", "Tell me about a time you disagreed with a teammate.", false},
		{"empty", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.DetectTransitionPhrases(tt.text))
		})
	}
}

func TestDetectPrefersToken(t *testing.T) {
	d := NewDetector()

	sig := d.Detect("Let's move on to the next section. [[NEXT_SECTION]]")
	assert.Equal(t, SourceToken, sig.Source)
	assert.True(t, sig.Fired())

	sig = d.Detect("Let's move on to the next section.")
	assert.Equal(t, SourcePhrase, sig.Source)
	assert.Equal(t, "let's move on to the next section", sig.Phrase)

	assert.False(t, d.Detect("What is a goroutine?").Fired())
}

func TestDetectWithoutPhraseFallback(t *testing.T) {
	d := NewDetector(WithoutPhraseFallback())

	assert.False(t, d.Detect("Let's move on to the next section").Fired())
	assert.True(t, d.Detect("Good. [[NEXT_SECTION]]").Fired())
}

func TestCustomPhrasesAndToken(t *testing.T) {
	d := NewDetector(WithToken("<<done>>"), WithPhrases([]string{"On to the Coding Round!"}))

	assert.True(t, d.DetectTransitionPhrases("ok, on to the coding round"))
	assert.False(t, d.DetectTransitionPhrases("let's move on to the next section"))
	assert.Equal(t, SourceToken, d.Detect("x <<done>>").Source)
	assert.False(t, d.Detect("x [[NEXT_SECTION]]").Fired())
}

func TestStrip(t *testing.T) {
	d := NewDetector()
	assert.Equal(t, "Great, let's continue.", d.Strip("Great, let's continue. [[NEXT_SECTION]]"))

	noToken := NewDetector(WithToken(""))
	assert.Equal(t, "plain", noToken.Strip("  plain "))
}
