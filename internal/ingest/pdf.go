package ingest

import (
	"bytes"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pdfcpu otherwise creates a config directory under the user's home on first use.
var disableConfigDir sync.Once

// pdfPages validates a PDF in relaxed mode and returns its page count.
func pdfPages(content []byte) (int, error) {
	disableConfigDir.Do(api.DisableConfigDir)

	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed

	if err := api.Validate(bytes.NewReader(content), cfg); err != nil {
		return 0, err
	}
	return api.PageCount(bytes.NewReader(content), cfg)
}
