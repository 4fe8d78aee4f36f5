package claims

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MaxDocumentBytes caps a single attached file.
const MaxDocumentBytes = 10 << 20

var allowedDocumentExt = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// ValidateDocument checks an upload description and fills defaults.
func ValidateDocument(in DocumentInput) (DocumentInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return DocumentInput{}, fmt.Errorf("%w: document name is required", ErrValidation)
	}
	if strings.ContainsAny(in.Name, `/\`) {
		return DocumentInput{}, fmt.Errorf("%w: document name must not contain path separators", ErrValidation)
	}
	ext := strings.ToLower(filepath.Ext(in.Name))
	if !allowedDocumentExt[ext] {
		return DocumentInput{}, fmt.Errorf("%w: only .pdf, .jpg, .jpeg and .png files are accepted", ErrValidation)
	}
	if in.SizeBytes <= 0 {
		return DocumentInput{}, fmt.Errorf("%w: size_bytes must be > 0", ErrValidation)
	}
	if in.SizeBytes > MaxDocumentBytes {
		return DocumentInput{}, fmt.Errorf("%w: file exceeds 10MB", ErrValidation)
	}
	if in.Type == "" {
		in.Type = DocOther
	}
	if !in.Type.Valid() {
		return DocumentInput{}, fmt.Errorf("%w: unknown document type %q", ErrValidation, in.Type)
	}
	return in, nil
}
