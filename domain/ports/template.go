package ports

// TemplateEngine renders schema documents with variables.
type TemplateEngine interface {
	// Render processes the raw document bytes with the provided variables.
	// Returns resolved bytes with all template placeholders replaced.
	Render(raw []byte, vars map[string]interface{}) ([]byte, error)
}
