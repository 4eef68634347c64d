package loader

// The document types mirror the design file schema. Expressions are kept as
// source text and parsed while the tree is built.

// ScopeDoc is one scope of a design document.
type ScopeDoc struct {
	Name       string     `yaml:"name,omitempty" json:"name,omitempty"`
	Parameters []ParamDoc `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Variables  []VarDoc   `yaml:"variables,omitempty" json:"variables,omitempty"`
	Body       []StmtDoc  `yaml:"body,omitempty" json:"body,omitempty"`
	Scopes     []ScopeDoc `yaml:"scopes,omitempty" json:"scopes,omitempty"`
}

// ParamDoc declares a compile-time constant.
type ParamDoc struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value" json:"value"`
}

// VarDoc declares a variable. Init is only allowed on loop variables.
type VarDoc struct {
	Name string `yaml:"name" json:"name"`
	Init string `yaml:"init,omitempty" json:"init,omitempty"`
}

// StmtDoc is a statement. At most one of Expr, Block, For, If and While may
// be set; a statement with none of them is empty.
type StmtDoc struct {
	// ID is written by Encode for reference and ignored when loading.
	ID    int    `yaml:"id,omitempty" json:"id,omitempty"`
	Label string `yaml:"label,omitempty" json:"label,omitempty"`

	Expr  string    `yaml:"expr,omitempty" json:"expr,omitempty"`
	Block []StmtDoc `yaml:"block,omitempty" json:"block,omitempty"`
	For   *ForDoc   `yaml:"for,omitempty" json:"for,omitempty"`
	If    *IfDoc    `yaml:"if,omitempty" json:"if,omitempty"`
	While *WhileDoc `yaml:"while,omitempty" json:"while,omitempty"`
}

// ForDoc is a for loop.
type ForDoc struct {
	Vars  []VarDoc `yaml:"vars,omitempty" json:"vars,omitempty"`
	Stop  string   `yaml:"stop,omitempty" json:"stop,omitempty"`
	Steps []string `yaml:"steps,omitempty" json:"steps,omitempty"`
	Body  *StmtDoc `yaml:"body,omitempty" json:"body,omitempty"`
}

// IfDoc is a conditional statement.
type IfDoc struct {
	Conditions []CondDoc `yaml:"conditions" json:"conditions"`
	Then       *StmtDoc  `yaml:"then,omitempty" json:"then,omitempty"`
	Else       *StmtDoc  `yaml:"else,omitempty" json:"else,omitempty"`
}

// CondDoc is one clause of a conditional. A non-empty Pattern makes it a
// pattern-matching clause.
type CondDoc struct {
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Expr    string `yaml:"expr" json:"expr"`
}

// WhileDoc is a while loop.
type WhileDoc struct {
	Cond string   `yaml:"cond" json:"cond"`
	Body *StmtDoc `yaml:"body,omitempty" json:"body,omitempty"`
}

func (d *StmtDoc) kinds() int {
	n := 0
	for _, set := range []bool{d.Expr != "", d.Block != nil, d.For != nil, d.If != nil, d.While != nil} {
		if set {
			n++
		}
	}
	return n
}
