package loader

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gnoswap-labs/unroll/internal/ast"
)

// Encode writes scopes as indented JSON in the document schema. A single
// scope is written as an object, several as an array. The output can be
// loaded again; statement ids are informational.
func Encode(w io.Writer, scopes ...*ast.Scope) error {
	var v any
	if len(scopes) == 1 {
		v = ToDoc(scopes[0])
	} else {
		docs := make([]ScopeDoc, 0, len(scopes))
		for _, s := range scopes {
			docs = append(docs, ToDoc(s))
		}
		v = docs
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	// expressions are full of < and &
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("error encoding design: %w", err)
	}
	return nil
}

// ToDoc converts an elaborated scope back into its document form.
func ToDoc(s *ast.Scope) ScopeDoc {
	doc := ScopeDoc{Name: s.Name}
	for _, p := range s.Parameters {
		doc.Parameters = append(doc.Parameters, ParamDoc{Name: p.Name, Value: exprText(p.Value)})
	}
	for _, v := range s.Variables {
		doc.Variables = append(doc.Variables, VarDoc{Name: v.Name})
	}
	for _, st := range s.Body {
		doc.Body = append(doc.Body, stmtDoc(st))
	}
	for _, c := range s.Scopes {
		doc.Scopes = append(doc.Scopes, ToDoc(c))
	}
	return doc
}

func stmtDoc(st ast.Stmt) StmtDoc {
	loc := st.Loc()
	doc := StmtDoc{ID: loc.ID, Label: loc.Label}
	switch st := st.(type) {
	case *ast.ExpressionStmt:
		doc.Expr = exprText(st.Expr)
	case *ast.BlockStmt:
		doc.Block = make([]StmtDoc, 0, len(st.Stmts))
		for _, inner := range st.Stmts {
			doc.Block = append(doc.Block, stmtDoc(inner))
		}
	case *ast.ForLoopStmt:
		f := &ForDoc{Stop: exprText(st.Stop)}
		for _, lv := range st.LoopVars {
			f.Vars = append(f.Vars, VarDoc{Name: lv.Name, Init: exprText(lv.Initializer)})
		}
		for _, step := range st.Steps {
			f.Steps = append(f.Steps, exprText(step))
		}
		f.Body = bodyDoc(st.Body)
		doc.For = f
	case *ast.ConditionalStmt:
		c := &IfDoc{Conditions: make([]CondDoc, 0, len(st.Conditions))}
		for _, cond := range st.Conditions {
			cd := CondDoc{Expr: exprText(cond.Expr)}
			if cond.Pattern != nil {
				cd.Pattern = cond.Pattern.Text
			}
			c.Conditions = append(c.Conditions, cd)
		}
		c.Then = bodyDoc(st.IfTrue)
		c.Else = bodyDoc(st.IfFalse)
		doc.If = c
	case *ast.WhileLoopStmt:
		doc.While = &WhileDoc{Cond: exprText(st.Cond), Body: bodyDoc(st.Body)}
	}
	return doc
}

func bodyDoc(st ast.Stmt) *StmtDoc {
	if st == nil {
		return nil
	}
	d := stmtDoc(st)
	return &d
}

func exprText(e ast.Expr) string {
	if e == nil {
		return ""
	}
	return e.String()
}
