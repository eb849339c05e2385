package notion

import (
	"strings"

	"github.com/jomei/notionapi"
)

// Text returns the plain text of a title, rich text, URL, select or email
// property, or "" when the property is absent or of another type.
func Text(props notionapi.Properties, name string) string {
	switch p := props[name].(type) {
	case *notionapi.TitleProperty:
		return plainText(p.Title)
	case *notionapi.RichTextProperty:
		return plainText(p.RichText)
	case *notionapi.URLProperty:
		return strings.TrimSpace(p.URL)
	case *notionapi.SelectProperty:
		return p.Select.Name
	case *notionapi.EmailProperty:
		return strings.TrimSpace(p.Email)
	}
	return ""
}

// Checkbox returns a checkbox property's value and whether it was present.
func Checkbox(props notionapi.Properties, name string) (bool, bool) {
	p, ok := props[name].(*notionapi.CheckboxProperty)
	if !ok {
		return false, false
	}
	return p.Checkbox, true
}

// Number returns a number property's value and whether it was present.
func Number(props notionapi.Properties, name string) (float64, bool) {
	p, ok := props[name].(*notionapi.NumberProperty)
	if !ok {
		return 0, false
	}
	return p.Number, true
}

func plainText(rt []notionapi.RichText) string {
	var b strings.Builder
	for _, t := range rt {
		b.WriteString(t.PlainText)
	}
	return strings.TrimSpace(b.String())
}
