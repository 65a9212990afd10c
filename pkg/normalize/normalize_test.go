package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_RejectsTooShort(t *testing.T) {
	_, ok := Normalize("hi")
	assert.False(t, ok)
}

func TestNormalize_RejectsEmpty(t *testing.T) {
	_, ok := Normalize("")
	assert.False(t, ok)
}

func TestNormalize_CollapsesWhitespace(t *testing.T) {
	got, ok := Normalize("pouring   the   coffee")
	assert.True(t, ok)
	assert.Equal(t, "pouring the coffee", got)
}

func TestNormalize_StripsDisallowedChars(t *testing.T) {
	got, ok := Normalize("grinding beans @@@ #now")
	assert.True(t, ok)
	assert.Equal(t, "grinding beans  now", got)
}

func TestNormalize_CollapsesRepeatedPunctuation(t *testing.T) {
	got, ok := Normalize("what is happening.....")
	assert.True(t, ok)
	assert.Equal(t, "what is happening...", got)

	got, ok = Normalize("watch out!!!!")
	assert.True(t, ok)
	assert.Equal(t, "watch out!", got)

	got, ok = Normalize("is it done????")
	assert.True(t, ok)
	assert.Equal(t, "is it done?", got)
}

func TestNormalize_RejectsLowAlphaRatio(t *testing.T) {
	_, ok := Normalize("123 456 789 ...")
	assert.False(t, ok)
}

func TestNormalize_RejectsWhenCleanedTooShort(t *testing.T) {
	_, ok := Normalize("@@ a @@")
	assert.False(t, ok)
}
