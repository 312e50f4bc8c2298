package sourcepolicy

import (
	"fmt"
	"unicode/utf8"

	"tapevault/internal/media"
)

// maxTapeNumberLen caps tape numbers at 32 characters, counted in runes.
const maxTapeNumberLen = 32

// tapePolicy governs digitized video tapes: the tape number is required
// and becomes the source-scoped unique key.
type tapePolicy struct{}

func (tapePolicy) Kind() media.SourceKind { return media.SourceVideoTape }

func (tapePolicy) Normalize(meta *Metadata) {
	normalizeCommon(meta)
	meta.TapeNumber = normalizeTapeNumber(meta.TapeNumber)
}

func (tapePolicy) Validate(meta *Metadata) error {
	if meta.TapeNumber == "" {
		return media.Wrap(media.ErrMissingRequiredField, "sourcepolicy", "validate",
			"video tape source requires tape_number", nil)
	}
	if utf8.RuneCountInString(meta.TapeNumber) > maxTapeNumberLen {
		return media.Wrap(media.ErrInvalidMediaType, "sourcepolicy", "validate",
			fmt.Sprintf("tape_number must be %d characters or less", maxTapeNumberLen), nil)
	}
	return nil
}
