package arch_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
	"testing"
)

// TestExportedSymbolsHaveGoDoc verifies that every exported declaration in
// an internal package has a doc comment starting with its name. Grouped
// const and var blocks may share one block comment.
func TestExportedSymbolsHaveGoDoc(t *testing.T) {
	t.Parallel()

	for _, pkg := range internalPackages(t) {
		pkg := pkg
		t.Run(pkg, func(t *testing.T) {
			t.Parallel()

			fset, files := parsePackage(t, pkg, parser.ParseComments)
			for _, f := range files {
				if isGeneratedFile(t, fset.File(f.Pos()).Name()) {
					continue
				}
				for _, decl := range f.Decls {
					for _, miss := range undocumented(decl) {
						t.Errorf("%s: exported %s has no GoDoc comment", fset.Position(miss.Pos()), miss.Name)
					}
				}
			}
		})
	}
}

// undocumented returns the exported names declared by decl that lack a
// proper doc comment.
func undocumented(decl ast.Decl) []*ast.Ident {
	var missing []*ast.Ident
	switch d := decl.(type) {
	case *ast.FuncDecl:
		if d.Name.IsExported() && exportedReceiver(d.Recv) && !startsWith(d.Doc, d.Name.Name) {
			missing = append(missing, d.Name)
		}
	case *ast.GenDecl:
		grouped := len(d.Specs) > 1 && d.Doc != nil
		for _, spec := range d.Specs {
			switch s := spec.(type) {
			case *ast.TypeSpec:
				if s.Name.IsExported() && !startsWith(s.Doc, s.Name.Name) && !startsWith(d.Doc, s.Name.Name) {
					missing = append(missing, s.Name)
				}
			case *ast.ValueSpec:
				for _, name := range s.Names {
					if !name.IsExported() || grouped || s.Comment != nil {
						continue
					}
					if !startsWith(s.Doc, name.Name) && !startsWith(d.Doc, name.Name) {
						missing = append(missing, name)
					}
				}
			}
		}
	}
	return missing
}

func startsWith(doc *ast.CommentGroup, name string) bool {
	return doc != nil && strings.HasPrefix(strings.TrimSpace(doc.Text()), name)
}

// exportedReceiver reports whether a method belongs to an exported type.
// Plain functions count as exported receivers.
func exportedReceiver(recv *ast.FieldList) bool {
	if recv == nil || len(recv.List) == 0 {
		return true
	}
	return receiverName(recv) != "" && token.IsExported(receiverName(recv))
}

// receiverName returns the base type name of a method receiver.
func receiverName(recv *ast.FieldList) string {
	if recv == nil || len(recv.List) == 0 {
		return ""
	}
	expr := recv.List[0].Type
	for {
		switch e := expr.(type) {
		case *ast.StarExpr:
			expr = e.X
		case *ast.IndexExpr:
			expr = e.X
		case *ast.IndexListExpr:
			expr = e.X
		case *ast.Ident:
			return e.Name
		default:
			return ""
		}
	}
}
