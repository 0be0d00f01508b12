package discovery

type Kind string

const (
	KindPackage Kind = "package"
	KindSymbol  Kind = "symbol"
	KindFile    Kind = "file"
)

// Candidate is an identifier offered to the resolver, with where it came from.
type Candidate struct {
	Identifier string `json:"identifier"`
	Kind       Kind   `json:"kind"`
	Language   string `json:"language"`
	// Path is the defining file, or directory for Go packages, relative to its scan root.
	Path string `json:"path"`
}

type Options struct {
	Granularity  string
	Languages    []string
	IncludeTests bool
	ExcludeDirs  []string
	ExcludeFiles []string
	// Workers bounds concurrent parsing; <= 0 means runtime.NumCPU().
	Workers int
}

// Identifiers returns the distinct identifiers of cands in input order.
func Identifiers(cands []Candidate) []string {
	seen := make(map[string]bool, len(cands))
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		if seen[c.Identifier] {
			continue
		}
		seen[c.Identifier] = true
		out = append(out, c.Identifier)
	}
	return out
}
