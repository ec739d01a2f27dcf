package notion

import (
	"strings"

	"github.com/jomei/notionapi"
)

// Title builds a title property.
func Title(v string) notionapi.TitleProperty {
	return notionapi.TitleProperty{
		Type:  notionapi.PropertyTypeTitle,
		Title: []notionapi.RichText{{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: v}}},
	}
}

// Text builds a rich_text property.
func Text(v string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		Type:     notionapi.PropertyTypeRichText,
		RichText: []notionapi.RichText{{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: v}}},
	}
}

// Number builds a number property.
func Number(v float64) notionapi.NumberProperty {
	return notionapi.NumberProperty{Type: notionapi.PropertyTypeNumber, Number: v}
}

// Checkbox builds a checkbox property.
func Checkbox(v bool) notionapi.CheckboxProperty {
	return notionapi.CheckboxProperty{Type: notionapi.PropertyTypeCheckbox, Checkbox: v}
}

// PlainText returns the trimmed plain text of a title or rich_text
// property, or "" when the property is missing or of another type.
func PlainText(props notionapi.Properties, name string) string {
	prop, ok := props[name]
	if !ok {
		return ""
	}
	var parts []notionapi.RichText
	switch p := prop.(type) {
	case *notionapi.TitleProperty:
		parts = p.Title
	case *notionapi.RichTextProperty:
		parts = p.RichText
	default:
		return ""
	}
	var b strings.Builder
	for _, rt := range parts {
		b.WriteString(rt.PlainText)
	}
	return strings.TrimSpace(b.String())
}

// NumberValue returns a number property's value and whether it was present.
func NumberValue(props notionapi.Properties, name string) (float64, bool) {
	if np, ok := props[name].(*notionapi.NumberProperty); ok {
		return np.Number, true
	}
	return 0, false
}

// CheckboxValue returns a checkbox property's value, false when missing.
func CheckboxValue(props notionapi.Properties, name string) bool {
	if cp, ok := props[name].(*notionapi.CheckboxProperty); ok {
		return cp.Checkbox
	}
	return false
}
