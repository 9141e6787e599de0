package notes

import (
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/vocabdeck/internal/model"
)

const (
	DefaultSeparator = " · "
	DefaultMaxLength = 300

	falseFriendWarning = "Beware: false friend"
)

var genericDomains = map[string]bool{
	"general": true, "generic": true, "common": true, "none": true,
	"standard": true, "allgemein": true, "allgemeinsprache": true, "n/a": true,
}

var neutralRegisters = map[string]bool{
	"neutral": true, "standard": true, "normal": true, "none": true,
	"allgemein": true, "n/a": true,
}

// LineOptions shapes BuildLine output; zero values take the defaults
type LineOptions struct {
	Separator string
	MaxLength int
}

// BuildLine joins metadata fragments in priority order. A fragment is only
// added while the line stays within MaxLength runes; the first fragment
// that would overflow ends the line.
func BuildLine(meta *model.AnnotationMetadata, opts LineOptions) string {
	if meta.IsEmpty() {
		return ""
	}
	sep := opts.Separator
	if sep == "" {
		sep = DefaultSeparator
	}
	limit := opts.MaxLength
	if limit <= 0 {
		limit = DefaultMaxLength
	}

	var b strings.Builder
	length := 0
	for _, frag := range fragments(meta) {
		add := utf8.RuneCountInString(frag)
		if length > 0 {
			add += utf8.RuneCountInString(sep)
		}
		if length+add > limit {
			break
		}
		if length > 0 {
			b.WriteString(sep)
		}
		b.WriteString(frag)
		length += add
	}
	return b.String()
}

func fragments(meta *model.AnnotationMetadata) []string {
	var out []string
	if ff := meta.FalseFriend; ff != nil {
		if ff.Text != "" {
			out = append(out, "False Friend: "+ff.Text)
		} else if ff.Flag {
			out = append(out, falseFriendWarning)
		}
	}
	if meta.Notes != "" {
		out = append(out, meta.Notes)
	}
	if meta.Sense != "" && (meta.Ambiguity == model.AmbiguityMedium || meta.Ambiguity == model.AmbiguityHigh) {
		out = append(out, "Sense: "+meta.Sense)
	}
	if meta.Domain != "" && !genericDomains[strings.ToLower(meta.Domain)] {
		out = append(out, meta.Domain)
	}
	if meta.Register != "" && !neutralRegisters[strings.ToLower(meta.Register)] {
		out = append(out, "Register: "+meta.Register)
	}
	if len(meta.Alternatives) > 0 {
		out = append(out, "Alternatives: "+strings.Join(meta.Alternatives, ", "))
	}
	if len(meta.Collocations) > 0 {
		out = append(out, meta.Collocations[0])
	}
	return out
}
