package extract

import (
	"fmt"
	"strings"

	"github.com/peebo/peebo/internal/model"
)

// Format renders a snapshot as compact text, one element per line:
//
//	[3] textbox "Email" value="jane@example.com" (required)
func Format(snap model.PageSnapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "URL: %s\n", snap.URL)
	fmt.Fprintf(&b, "Title: %s\n", snap.Title)
	fmt.Fprintf(&b, "Scroll: %.0f/%.0f\n", snap.ScrollY, snap.ScrollHeight)

	for _, e := range snap.Elements {
		role := e.Role
		if role == "" {
			role = e.Tag
		}
		fmt.Fprintf(&b, "[%d] %s", e.Index, role)
		if e.Name != "" {
			fmt.Fprintf(&b, " %q", e.Name)
		}
		if e.Value != "" {
			fmt.Fprintf(&b, " value=%q", e.Value)
		}
		var flags []string
		if e.Required {
			flags = append(flags, "required")
		}
		if e.Checked {
			flags = append(flags, "checked")
		}
		if !e.InViewport {
			flags = append(flags, "offscreen")
		}
		if len(flags) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(flags, ", "))
		}
		b.WriteString("\n")
	}

	return b.String()
}
