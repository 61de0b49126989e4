package searchable

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/searchstring/internal/queryir"
	"github.com/roach88/searchstring/internal/term"
)

const definitionsFile = "schema.cue"

//go:embed schema.cue
var schemaDefinitions []byte

// Error codes for schema loading.
const (
	ErrCodeLoadFailed    = "E401" // CUE files could not be read or built
	ErrCodeInvalidSchema = "E402" // value does not satisfy #Schema
	ErrCodeUnknownEntity = "E403" // relation points at an undeclared entity
	ErrCodeInvalidField  = "E404" // field missing or inconsistent
	ErrCodeNotFound      = "E405" // schema directory not found
)

// LoadError is a schema loading error with the CUE position it refers to.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsLoadError extracts a LoadError from err's chain.
func AsLoadError(err error) (*LoadError, bool) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr, true
	}
	return nil, false
}

// LoadDir loads the CUE package in dir.
func LoadDir(dir string, opts ...Option) (*Schema, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(ErrCodeLoadFailed, inst.Err)
	}

	value := ctx.BuildInstance(inst)
	return build(ctx, value, opts)
}

// Compile loads a schema from CUE source. filename is only used in
// error positions.
func Compile(src []byte, filename string, opts ...Option) (*Schema, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(src, cue.Filename(filename))
	return build(ctx, value, opts)
}

func build(ctx *cue.Context, value cue.Value, opts []Option) (*Schema, error) {
	if err := value.Err(); err != nil {
		return nil, formatCUEError(ErrCodeLoadFailed, err)
	}

	def := ctx.CompileBytes(schemaDefinitions, cue.Filename(definitionsFile)).LookupPath(cue.ParsePath("#Schema"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("schema definitions: %w", err)
	}
	value = def.Unify(value)
	if err := value.Validate(); err != nil {
		return nil, formatCUEError(ErrCodeInvalidSchema, err)
	}

	s := newSchema(opts)
	if err := s.parseKeys(value.LookupPath(cue.ParsePath("keys"))); err != nil {
		return nil, err
	}

	entities := value.LookupPath(cue.ParsePath("entity"))
	if !entities.Exists() {
		return nil, &LoadError{Code: ErrCodeInvalidField, Message: "no entities declared"}
	}
	iter, err := entities.Fields()
	if err != nil {
		return nil, formatCUEError(ErrCodeInvalidSchema, err)
	}
	for iter.Next() {
		e, err := parseEntity(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		e.schema = s
		s.entities[e.name] = e
		s.order = append(s.order, e.name)
	}

	if len(s.order) == 0 {
		return nil, &LoadError{Code: ErrCodeInvalidField, Message: "no entities declared"}
	}
	if err := s.link(); err != nil {
		return nil, err
	}
	return s, nil
}

var keyKinds = map[string]queryir.KeyKind{
	"select":   queryir.KeySelect,
	"order_by": queryir.KeyOrderBy,
	"limit":    queryir.KeyLimit,
	"offset":   queryir.KeyOffset,
	"keyword":  queryir.KeyKeyword,
}

func (s *Schema) parseKeys(v cue.Value) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(ErrCodeInvalidSchema, err)
	}
	for iter.Next() {
		kind, err := iter.Value().String()
		if err != nil {
			return formatCUEError(ErrCodeInvalidSchema, err)
		}
		s.keys[iter.Selector().Unquoted()] = keyKinds[kind]
	}
	return nil
}

func parseEntity(name string, v cue.Value) (*Entity, error) {
	e := &Entity{
		name:      name,
		columns:   map[string]column{},
		computed:  map[string]string{},
		relations: map[string]queryir.Relation{},
		aliases:   map[string][]string{},

		hiddenRelations: map[string]bool{},
	}

	var err error
	if e.table, err = str(v.LookupPath(cue.ParsePath("table"))); err != nil {
		return nil, &LoadError{Code: ErrCodeInvalidField, Message: fmt.Sprintf("entity %s: table is required", name), Pos: v.Pos()}
	}
	if e.primaryKey, err = str(v.LookupPath(cue.ParsePath("primary_key"))); err != nil {
		return nil, formatCUEError(ErrCodeInvalidField, err)
	}

	if err := eachField(v, "columns", func(col string, cv cue.Value) error {
		typ, err := str(cv.LookupPath(cue.ParsePath("type")))
		if err != nil {
			return err
		}
		hidden, err := boolean(cv.LookupPath(cue.ParsePath("hidden")))
		if err != nil {
			return err
		}
		e.columns[col] = column{typ: typ, hidden: hidden}
		e.columnOrder = append(e.columnOrder, col)
		return nil
	}); err != nil {
		return nil, err
	}

	if sv := v.LookupPath(cue.ParsePath("searchable")); sv.Exists() {
		if err := sv.Decode(&e.searchable); err != nil {
			return nil, formatCUEError(ErrCodeInvalidField, err)
		}
		if e.searchable == nil {
			e.searchable = []string{}
		}
	}

	if err := eachField(v, "computed", func(col string, cv cue.Value) error {
		expr, err := cv.String()
		e.computed[col] = expr
		return err
	}); err != nil {
		return nil, err
	}

	if err := eachField(v, "relations", func(rel string, rv cue.Value) error {
		r, err := parseRelation(rel, e.primaryKey, rv)
		if err != nil {
			return err
		}
		e.relations[rel] = r
		if hidden, err := boolean(rv.LookupPath(cue.ParsePath("hidden"))); err == nil && hidden {
			e.hiddenRelations[rel] = true
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := eachField(v, "aliases", func(key string, av cue.Value) error {
		var targets []string
		if err := av.Decode(&targets); err != nil {
			return err
		}
		e.aliases[key] = targets
		return nil
	}); err != nil {
		return nil, err
	}

	if e.numericPhrase, err = parsePhrase(v.LookupPath(cue.ParsePath("phrase.numeric"))); err != nil {
		return nil, err
	}
	if e.textPhrase, err = parsePhrase(v.LookupPath(cue.ParsePath("phrase.text"))); err != nil {
		return nil, err
	}

	return e, nil
}

func parseRelation(name, primaryKey string, v cue.Value) (queryir.Relation, error) {
	kind, err := str(v.LookupPath(cue.ParsePath("kind")))
	if err != nil {
		return queryir.Relation{}, formatCUEError(ErrCodeInvalidField, err)
	}
	entity, err := str(v.LookupPath(cue.ParsePath("entity")))
	if err != nil {
		return queryir.Relation{}, formatCUEError(ErrCodeInvalidField, err)
	}
	foreignKey, err := str(v.LookupPath(cue.ParsePath("foreign_key")))
	if err != nil {
		return queryir.Relation{}, formatCUEError(ErrCodeInvalidField, err)
	}

	rel := queryir.Relation{
		Name:       name,
		Kind:       queryir.RelationKind(kind),
		Entity:     entity,
		LocalKey:   optional(v, "local_key"),
		ForeignKey: foreignKey,
	}
	if rel.LocalKey == "" {
		rel.LocalKey = primaryKey
	}

	if via := v.LookupPath(cue.ParsePath("via")); via.Exists() && optional(v, "via.table") != "" {
		rel.Via = &queryir.Via{
			Table:      optional(v, "via.table"),
			Key:        optional(v, "via.key"),
			RelatedKey: optional(v, "via.related_key"),
		}
	}

	joined := rel.Kind == queryir.BelongsToMany || rel.Kind == queryir.HasManyThrough
	switch {
	case joined && rel.Via == nil:
		return rel, &LoadError{Code: ErrCodeInvalidField, Message: fmt.Sprintf("relation %s: %s needs via", name, rel.Kind), Pos: v.Pos()}
	case !joined && rel.Via != nil:
		return rel, &LoadError{Code: ErrCodeInvalidField, Message: fmt.Sprintf("relation %s: %s cannot have via", name, rel.Kind), Pos: v.Pos()}
	}
	return rel, nil
}

func parsePhrase(v cue.Value) ([]queryir.PhraseColumn, error) {
	if !v.Exists() {
		return nil, nil
	}
	var raw []struct {
		Column string `json:"column"`
		Op     string `json:"op"`
	}
	if err := v.Decode(&raw); err != nil {
		return nil, formatCUEError(ErrCodeInvalidField, err)
	}
	columns := make([]queryir.PhraseColumn, len(raw))
	for i, r := range raw {
		columns[i] = queryir.PhraseColumn{Column: r.Column, Op: term.Operator(r.Op)}
	}
	return columns, nil
}

// link resolves relation targets once every entity is known.
func (s *Schema) link() error {
	for _, name := range s.order {
		e := s.entities[name]
		for relName, rel := range e.relations {
			related, ok := s.entities[rel.Entity]
			if !ok {
				return &LoadError{
					Code:    ErrCodeUnknownEntity,
					Message: fmt.Sprintf("entity %s: relation %s points at unknown entity %q", name, relName, rel.Entity),
				}
			}
			rel.Table = related.table
			if rel.Via != nil && rel.Via.RelatedKey == "" {
				rel.Via.RelatedKey = related.primaryKey
			}
			e.relations[relName] = rel
		}
		for key, targets := range e.aliases {
			for _, target := range targets {
				if _, isAlias := e.aliases[target]; isAlias {
					return &LoadError{
						Code:    ErrCodeInvalidField,
						Message: fmt.Sprintf("entity %s: alias %s points at alias %s", name, key, target),
					}
				}
			}
		}
	}
	return nil
}

func eachField(v cue.Value, path string, fn func(label string, v cue.Value) error) error {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return nil
	}
	iter, err := fv.Fields()
	if err != nil {
		return formatCUEError(ErrCodeInvalidField, err)
	}
	for iter.Next() {
		if err := fn(iter.Selector().Unquoted(), iter.Value()); err != nil {
			if _, ok := AsLoadError(err); ok {
				return err
			}
			return formatCUEError(ErrCodeInvalidField, err)
		}
	}
	return nil
}

// optional reads a string field that may be absent.
func optional(v cue.Value, path string) string {
	s, err := str(v.LookupPath(cue.ParsePath(path)))
	if err != nil {
		return ""
	}
	return s
}

// str reads a string, resolving defaults such as `*"id"`.
func str(v cue.Value) (string, error) {
	if d, ok := v.Default(); ok {
		v = d
	}
	return v.String()
}

func boolean(v cue.Value) (bool, error) {
	if d, ok := v.Default(); ok {
		v = d
	}
	return v.Bool()
}

// formatCUEError keeps the position of the first CUE error, preferring
// positions in user files over the embedded definitions.
func formatCUEError(code string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}
	first := errs[0]
	loadErr := &LoadError{Code: code, Message: first.Error()}
	for _, pos := range cueerrors.Positions(first) {
		if !loadErr.Pos.IsValid() {
			loadErr.Pos = pos
		}
		if pos.Filename() != definitionsFile {
			loadErr.Pos = pos
			break
		}
	}
	return loadErr
}
