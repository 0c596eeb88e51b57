package playground

import "strings"

// Compose assembles the three source fragments into one self-contained HTML
// document: presentation as a style block in the head, structure as body
// content, behavior as a script block after the body content. The fixed
// order lets styles apply to the markup and lets the script see the markup,
// never the reverse.
//
// Compose is pure and total: any three strings produce a document, including
// empty or syntactically broken ones. Inputs are embedded verbatim with no
// escaping or size limits; safety is entirely the executor's isolation
// boundary, not the composer's concern.
func Compose(structure, presentation, behavior string) string {
	var doc strings.Builder
	doc.Grow(len(structure) + len(presentation) + len(behavior) + 128)
	doc.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<style>")
	doc.WriteString(presentation)
	doc.WriteString("</style>\n</head>\n<body>\n")
	doc.WriteString(structure)
	doc.WriteString("\n<script>")
	doc.WriteString(behavior)
	doc.WriteString("</script>\n</body>\n</html>\n")
	return doc.String()
}
