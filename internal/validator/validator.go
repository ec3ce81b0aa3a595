package validator

// =============================================================================
// VALIDATOR PHILOSOPHY: CRASH EARLY, CRASH LOUD
// =============================================================================
//
// The CUE validator is the contract guard at both ends of the force pass.
//
// Netlist documents are checked before they are decoded, so a misspelt key
// or an unknown statement kind is rejected instead of being dropped by the
// JSON decoder. Fact tables are checked before they reach the Rego rules,
// because a rule over a field that does not exist never fires. The --json
// report is checked before it leaves the process.
//
// WHEN VALIDATION FAILS:
// 1. DON'T relax the schema to make the error go away
// 2. DO find out which side of the contract changed and fix it there
// =============================================================================

import (
	"embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed netlist_schema.cue
var netlistSchemaFS embed.FS

//go:embed output_schema.cue
var outputSchemaFS embed.FS

//go:embed facts_schema.cue
var factsSchemaFS embed.FS

// schema is a compiled CUE file plus the definition data is checked
// against.
type schema struct {
	ctx  *cue.Context
	root cue.Value
	def  string
	what string
}

func loadSchema(fs embed.FS, file, def, what string) (*schema, error) {
	ctx := cuecontext.New()

	schemaBytes, err := fs.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("loading %s schema: %w", what, err)
	}

	root := ctx.CompileBytes(schemaBytes)
	if root.Err() != nil {
		return nil, fmt.Errorf("compiling %s schema: %w", what, root.Err())
	}
	if d := root.LookupPath(cue.ParsePath(def)); d.Err() != nil {
		return nil, fmt.Errorf("looking up %s definition: %w", def, d.Err())
	}
	return &schema{ctx: ctx, root: root, def: def, what: what}, nil
}

func (s *schema) unify(jsonBytes []byte) (cue.Value, error) {
	dataValue := s.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("compiling %s as CUE: %w", s.what, dataValue.Err())
	}
	return s.root.LookupPath(cue.ParsePath(s.def)).Unify(dataValue), nil
}

func (s *schema) validateJSON(jsonBytes []byte) error {
	unified, err := s.unify(jsonBytes)
	if err != nil {
		return err
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s schema validation failed: %w", s.what, err)
	}
	return nil
}

func (s *schema) validate(data interface{}) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling %s to JSON: %w", s.what, err)
	}
	return s.validateJSON(jsonBytes)
}

// Validator checks netlist documents before they are decoded.
type Validator struct {
	s *schema
}

// New creates a new Validator with the embedded netlist schema.
func New() (*Validator, error) {
	s, err := loadSchema(netlistSchemaFS, "netlist_schema.cue", "#Netlist", "netlist")
	if err != nil {
		return nil, err
	}
	return &Validator{s: s}, nil
}

// Validate checks that data, once marshaled, is a valid netlist document.
func (v *Validator) Validate(data interface{}) error {
	return v.s.validate(data)
}

// ValidateJSON validates JSON bytes directly against the schema.
func (v *Validator) ValidateJSON(jsonBytes []byte) error {
	return v.s.validateJSON(jsonBytes)
}

// ValidationErrors returns one line per schema violation in jsonBytes.
func (v *Validator) ValidationErrors(jsonBytes []byte) []string {
	unified, err := v.s.unify(jsonBytes)
	if err != nil {
		return []string{err.Error()}
	}
	err = unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var errs []string
	for _, e := range errors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return errs
}

// OutputValidator validates the --json report against the output schema.
type OutputValidator struct {
	s *schema
}

// NewOutputValidator creates a validator for the report.
func NewOutputValidator() (*OutputValidator, error) {
	s, err := loadSchema(outputSchemaFS, "output_schema.cue", "#ForceOutput", "output")
	if err != nil {
		return nil, err
	}
	return &OutputValidator{s: s}, nil
}

// Validate checks that the report conforms to the output schema.
func (v *OutputValidator) Validate(data interface{}) error {
	return v.s.validate(data)
}

// FactsValidator validates relational fact tables against the facts schema.
type FactsValidator struct {
	s *schema
}

// NewFactsValidator creates a validator for relational fact tables.
func NewFactsValidator() (*FactsValidator, error) {
	s, err := loadSchema(factsSchemaFS, "facts_schema.cue", "#FactTables", "facts")
	if err != nil {
		return nil, err
	}
	return &FactsValidator{s: s}, nil
}

// Validate checks that the fact tables conform to the facts schema.
func (v *FactsValidator) Validate(data interface{}) error {
	return v.s.validate(data)
}
