package sourcepolicy

import (
	"fmt"

	"tapevault/internal/media"
)

// importPolicy governs every non-tape source (cloud importers, user and
// guest uploads): a tape number is forbidden, and whitespace-only values
// are coerced to absent before validation.
type importPolicy struct {
	kind media.SourceKind
}

func (p importPolicy) Kind() media.SourceKind { return p.kind }

func (p importPolicy) Normalize(meta *Metadata) {
	normalizeCommon(meta)
	meta.TapeNumber = normalizeTapeNumber(meta.TapeNumber)
}

func (p importPolicy) Validate(meta *Metadata) error {
	if meta.TapeNumber != "" {
		return media.Wrap(media.ErrForbiddenField, "sourcepolicy", "validate",
			fmt.Sprintf("%s source cannot have tape_number", p.kind), nil)
	}
	return nil
}
