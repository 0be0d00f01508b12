package discovery

import (
	"unicode"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// goSymbols lists exported top-level names of one Go file. Methods on exported
// receivers are reported as "Type.Method".
func goSymbols(root *sitter.Node, source []byte) []string {
	var out []string
	for i := uint(0); i < root.ChildCount(); i++ {
		decl := root.Child(i)
		switch decl.Kind() {
		case "function_declaration":
			if name := nodeText(source, decl.ChildByFieldName("name")); isExported(name) {
				out = append(out, name)
			}
		case "method_declaration":
			name := nodeText(source, decl.ChildByFieldName("name"))
			recv := receiverType(decl.ChildByFieldName("receiver"), source)
			if isExported(name) && isExported(recv) {
				out = append(out, recv+"."+name)
			}
		case "type_declaration":
			for j := uint(0); j < decl.ChildCount(); j++ {
				spec := decl.Child(j)
				if spec.Kind() != "type_spec" && spec.Kind() != "type_alias" {
					continue
				}
				if name := nodeText(source, spec.ChildByFieldName("name")); isExported(name) {
					out = append(out, name)
				}
			}
		case "const_declaration", "var_declaration":
			out = append(out, valueSpecNames(decl, source)...)
		}
	}
	return out
}

// valueSpecNames collects exported names from const_spec/var_spec nodes at any
// depth below decl; grammar versions differ in how grouped specs are nested.
func valueSpecNames(decl *sitter.Node, source []byte) []string {
	var out []string
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Kind() == "const_spec" || n.Kind() == "var_spec" {
			for i := uint(0); i < n.ChildCount(); i++ {
				child := n.Child(i)
				if child.Kind() != "identifier" {
					continue
				}
				if name := nodeText(source, child); isExported(name) {
					out = append(out, name)
				}
			}
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(decl)
	return out
}

// receiverType returns the base type name of a method receiver, dropping
// pointers and type parameters.
func receiverType(receiver *sitter.Node, source []byte) string {
	var found string
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil || found != "" {
			return
		}
		if n.Kind() == "type_identifier" {
			found = nodeText(source, n)
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(receiver)
	return found
}

func isExported(name string) bool {
	if name == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}
