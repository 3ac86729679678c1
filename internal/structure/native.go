package structure

// interactiveTags are focusable and activatable without script.
var interactiveTags = map[string]bool{
	"button":   true,
	"select":   true,
	"textarea": true,
	"summary":  true,
	"iframe":   true,
	"embed":    true,
	"object":   true,
}

// nonSemanticTags carry no role of their own.
var nonSemanticTags = map[string]bool{
	"div": true, "span": true, "li": true, "p": true, "section": true,
	"article": true, "td": true, "tr": true, "img": true, "i": true,
	"b": true, "svg": true, "label": true, "header": true, "footer": true,
}

// NativelyFocusable reports focusability from tag and attributes alone,
// ignoring tabindex.
func (e *Element) NativelyFocusable() bool {
	if e.Disabled() {
		return false
	}
	switch e.Tag {
	case "a", "area":
		return e.HasAttr("href")
	case "input":
		return e.AttrValue("type") != "hidden"
	case "audio", "video":
		return e.HasAttr("controls")
	}
	if interactiveTags[e.Tag] {
		return true
	}
	if v, ok := e.Attr("contenteditable"); ok && v.Value != "false" {
		return true
	}
	return false
}

// NativelyActivatable reports whether the browser turns Enter/Space into a
// click for the element.
func (e *Element) NativelyActivatable() bool {
	if e.Disabled() {
		return false
	}
	switch e.Tag {
	case "button", "summary", "select", "textarea":
		return true
	case "a", "area":
		return e.HasAttr("href")
	case "input":
		return e.AttrValue("type") != "hidden"
	}
	return false
}

// Disabled reports the disabled state for form controls.
func (e *Element) Disabled() bool {
	switch e.Tag {
	case "button", "input", "select", "textarea", "fieldset", "option", "optgroup":
		return e.HasAttr("disabled")
	}
	return false
}

// NonSemantic reports whether the tag has no implicit interactive role.
func (e *Element) NonSemantic() bool {
	return nonSemanticTags[e.Tag]
}

// InteractiveRole reports roles that expect keyboard interaction.
func InteractiveRole(role string) bool {
	switch role {
	case "button", "link", "checkbox", "radio", "switch", "tab", "menuitem",
		"menuitemcheckbox", "menuitemradio", "option", "slider", "spinbutton",
		"textbox", "combobox", "searchbox", "treeitem", "gridcell":
		return true
	}
	return false
}
