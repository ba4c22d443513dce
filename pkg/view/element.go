package view

// Mutator is the DOM side of a render: it replaces or extends the inner
// markup of the element matched by selector and reports whether one matched.
type Mutator interface {
	SetInnerHTML(selector, markup string) bool
	AppendInnerHTML(selector, markup string) bool
}

// UpdateElement renders name into the element matched by selector. A missing
// element is ignored; a missing template empties the element and returns the
// render error.
func (e *Engine) UpdateElement(doc Mutator, selector, name string, data map[string]interface{}) error {
	out, err := e.Render(name, data)
	if !doc.SetInnerHTML(selector, out) {
		e.logger.Debug("update target not found", "selector", selector)
	}
	return err
}

// AppendToElement appends the rendered template to the element's markup.
func (e *Engine) AppendToElement(doc Mutator, selector, name string, data map[string]interface{}) error {
	out, err := e.Render(name, data)
	if !doc.AppendInnerHTML(selector, out) {
		e.logger.Debug("append target not found", "selector", selector)
	}
	return err
}
