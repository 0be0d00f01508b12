package discovery

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

var javaTypeDeclarations = map[string]bool{
	"class_declaration":           true,
	"interface_declaration":       true,
	"enum_declaration":            true,
	"record_declaration":          true,
	"annotation_type_declaration": true,
}

// javaSurface returns the file's package and its public types. Nested public
// types are reported as "Outer.Inner"; members of interfaces and annotations
// are implicitly public.
func javaSurface(root *sitter.Node, source []byte) (pkg string, types []string) {
	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		switch {
		case child.Kind() == "package_declaration":
			pkg = javaPackageName(child, source)
		case javaTypeDeclarations[child.Kind()]:
			types = append(types, javaPublicTypes(child, source, "", false)...)
		}
	}
	return pkg, types
}

func javaPackageName(decl *sitter.Node, source []byte) string {
	for i := uint(0); i < decl.ChildCount(); i++ {
		child := decl.Child(i)
		if child.Kind() == "scoped_identifier" || child.Kind() == "identifier" {
			return strings.Join(strings.Fields(nodeText(source, child)), "")
		}
	}
	return ""
}

func javaPublicTypes(decl *sitter.Node, source []byte, outer string, implicitPublic bool) []string {
	name := nodeText(source, decl.ChildByFieldName("name"))
	if name == "" || !(implicitPublic || hasPublicModifier(decl, source)) {
		return nil
	}
	if outer != "" {
		name = outer + "." + name
	}
	out := []string{name}

	memberPublic := decl.Kind() == "interface_declaration" || decl.Kind() == "annotation_type_declaration"
	body := decl.ChildByFieldName("body")
	for _, member := range javaBodyMembers(body) {
		if javaTypeDeclarations[member.Kind()] {
			out = append(out, javaPublicTypes(member, source, name, memberPublic)...)
		}
	}
	return out
}

// javaBodyMembers flattens enum_body_declarations so enum bodies look like class bodies.
func javaBodyMembers(body *sitter.Node) []*sitter.Node {
	if body == nil {
		return nil
	}
	var out []*sitter.Node
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		if child.Kind() == "enum_body_declarations" {
			out = append(out, javaBodyMembers(child)...)
			continue
		}
		out = append(out, child)
	}
	return out
}

func hasPublicModifier(decl *sitter.Node, source []byte) bool {
	for i := uint(0); i < decl.ChildCount(); i++ {
		child := decl.Child(i)
		if child.Kind() != "modifiers" {
			continue
		}
		for j := uint(0); j < child.ChildCount(); j++ {
			if nodeText(source, child.Child(j)) == "public" {
				return true
			}
		}
	}
	return false
}
