package notion

import (
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
)

func TestBuilders(t *testing.T) {
	t.Parallel()

	title := Title("밥")
	assert.Equal(t, notionapi.PropertyTypeTitle, title.Type)
	assert.Equal(t, "밥", title.Title[0].Text.Content)

	text := Text("2024-03-01 12:30")
	assert.Equal(t, notionapi.PropertyTypeRichText, text.Type)
	assert.Equal(t, "2024-03-01 12:30", text.RichText[0].Text.Content)

	assert.Equal(t, 42.5, Number(42.5).Number)
	assert.True(t, Checkbox(true).Checkbox)
}

func TestPlainText(t *testing.T) {
	t.Parallel()

	props := notionapi.Properties{
		"Name": &notionapi.TitleProperty{Title: []notionapi.RichText{{PlainText: " kimchi"}, {PlainText: " stew "}}},
		"User": &notionapi.RichTextProperty{RichText: []notionapi.RichText{{PlainText: "alice"}}},
		"Mass": &notionapi.NumberProperty{Number: 12},
	}

	assert.Equal(t, "kimchi stew", PlainText(props, "Name"))
	assert.Equal(t, "alice", PlainText(props, "User"))
	assert.Empty(t, PlainText(props, "Mass"))
	assert.Empty(t, PlainText(props, "Missing"))
}

func TestNumberAndCheckboxValue(t *testing.T) {
	t.Parallel()

	props := notionapi.Properties{
		"Mass": &notionapi.NumberProperty{Number: 250},
		"Full": &notionapi.CheckboxProperty{Checkbox: true},
		"User": &notionapi.RichTextProperty{},
	}

	v, ok := NumberValue(props, "Mass")
	assert.True(t, ok)
	assert.Equal(t, 250.0, v)

	_, ok = NumberValue(props, "User")
	assert.False(t, ok)
	_, ok = NumberValue(props, "Missing")
	assert.False(t, ok)

	assert.True(t, CheckboxValue(props, "Full"))
	assert.False(t, CheckboxValue(props, "Missing"))
}
