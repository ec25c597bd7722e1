package entity

import (
	"github.com/joseph-ayodele/docrows/constants"
	"github.com/joseph-ayodele/docrows/internal/common"
)

// Document is an uploaded file waiting for extraction.
type Document struct {
	ID          string
	Name        string
	Size        int64
	Format      constants.DocumentFormat
	ContentType string
	Content     []byte
	HashHex     string
	Pages       int
}

// Validate checks the fields every workflow stage relies on.
func (d Document) Validate() error {
	v := common.NewValidator().
		Field("id", d.ID, common.Required).
		Field("name", d.Name, common.Required, common.MaxLength(255)).
		Field("content", d.Content, common.Required)
	if v.HasErrors() {
		return common.UploadError("invalid document %q: %s", d.Name, v.ErrorMessage())
	}
	return nil
}
