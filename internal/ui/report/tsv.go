package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"apisurface/internal/engine/surface"
)

func RenderTSV(s Surface) string {
	var buf strings.Builder

	buf.WriteString("Identifier\tClassification\n")
	for _, r := range s.Records {
		buf.WriteString(fmt.Sprintf("%s\t%s\n", r.Identifier, r.Classification))
	}
	return buf.String()
}

// RenderJSON emits empty lists rather than null so consumers can iterate blindly.
func RenderJSON(s Surface) ([]byte, error) {
	if s.Records == nil {
		s.Records = []surface.ModuleRecord{}
	}
	if s.Includes == nil {
		s.Includes = []string{}
	}
	if s.Excludes == nil {
		s.Excludes = []string{}
	}
	return json.MarshalIndent(s, "", "  ")
}
