package extract

// DefaultModelName is the default Gemini model used for extraction.
const DefaultModelName = "gemini-2.5-flash"

// receiptMIMETypes lists the media types accepted for receipt uploads.
var receiptMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// statementMIMETypes lists the media types accepted for statement uploads.
// Statements additionally allow PDFs.
var statementMIMETypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// AllowedMIMEType reports whether mimeType is accepted for the given kind.
func AllowedMIMEType(kind Kind, mimeType string) bool {
	switch kind {
	case KindReceipt:
		return receiptMIMETypes[mimeType]
	case KindStatement:
		return statementMIMETypes[mimeType]
	default:
		return false
	}
}
