package application

import (
	"strings"

	"github.com/bnema/calsnap/internal/domain"
	"github.com/bnema/calsnap/internal/ports"
)

type SubmitCommand struct {
	Content ports.Content
	// Title is shown until the remote service reports its own.
	Title string
	// Detached persists the record without polling it in this process.
	// A daemon sharing the store picks it up through Sync.
	Detached bool
}

func (c SubmitCommand) inputType() domain.InputType {
	if c.Content.InputType != "" {
		return c.Content.InputType
	}

	switch {
	case c.Content.URL != "":
		return domain.InputTypePage
	case len(c.Content.Data) > 0 && strings.HasPrefix(c.Content.MimeType, "image/"):
		return domain.InputTypeImage
	case len(c.Content.Data) > 0:
		return domain.InputTypeFile
	default:
		return domain.InputTypeText
	}
}

