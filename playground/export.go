package playground

// ExportFile is a per-buffer download: the raw buffer content under a fixed
// per-language file name and content type. Export never touches the network
// and never composes; it hands back exactly the bytes the buffer holds.
type ExportFile struct {
	Name        string
	ContentType string
	Content     string
}

// Export packages one buffer's content for download.
func Export(lang Language, code string) ExportFile {
	f := ExportFile{Content: code}
	switch lang {
	case LangPresentation:
		f.Name = "styles.css"
		f.ContentType = "text/css"
	case LangBehavior:
		f.Name = "script.js"
		f.ContentType = "text/javascript"
	default:
		f.Name = "code.html"
		f.ContentType = "text/html"
	}
	return f
}
