package ffmpeg

import (
	"sort"
	"strings"

	"github.com/eleven-am/mediaworker/internal/domain"
)

// Render formats a descriptor in ffmpeg filtergraph syntax, e.g.
// crop@crop_filter=out_h=200:out_w=300:x=50:y=50. Keys are sorted so equal
// descriptors always render the same way.
func Render(f domain.FilterDescriptor) string {
	var b strings.Builder
	b.WriteString(f.Name)
	if f.Label != nil && *f.Label != "" {
		b.WriteString("@")
		b.WriteString(*f.Label)
	}

	keys := make([]string, 0, len(f.Parameters))
	for k := range f.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for i, k := range keys {
		if i == 0 {
			b.WriteString("=")
		} else {
			b.WriteString(":")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(escapeValue(f.Parameters[k]))
	}

	return b.String()
}

func RenderChain(filters []domain.FilterDescriptor) string {
	parts := make([]string, len(filters))
	for i, f := range filters {
		parts[i] = Render(f)
	}
	return strings.Join(parts, ",")
}

func escapeValue(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `:`, `\:`, `,`, `\,`, `'`, `\'`)
	return r.Replace(v)
}
