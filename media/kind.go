// Package media classifies message attachments into the kinds the
// messenger supports.
package media

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"messenger-lab/domain"
	"messenger-lab/errors"
)

// Classify sniffs the attachment bytes and maps them to a message
// kind. Nil or empty data means a plain text message. Anything that is
// neither an image nor a video is rejected.
func Classify(data []byte) (domain.Kind, string, error) {
	if len(data) == 0 {
		return domain.KindText, "", nil
	}
	detected := mimetype.Detect(data)
	mime := detected.String()
	switch {
	case strings.HasPrefix(mime, "image/"):
		return domain.KindImage, mime, nil
	case strings.HasPrefix(mime, "video/"):
		return domain.KindVideo, mime, nil
	default:
		return domain.KindText, mime, errors.ErrUnsupportedMedia
	}
}
