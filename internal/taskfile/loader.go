package taskfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/gitrdm/goplanner/pkg/formalism"
)

// Load reads a domain and a problem document from disk and builds the
// problem.
func Load(domainPath, problemPath string) (*formalism.Problem, error) {
	domainData, err := os.ReadFile(domainPath)
	if err != nil {
		return nil, fmt.Errorf("read domain: %w", err)
	}
	problemData, err := os.ReadFile(problemPath)
	if err != nil {
		return nil, fmt.Errorf("read problem: %w", err)
	}
	return Parse(domainData, problemData)
}

// Parse decodes both documents and builds the problem.
func Parse(domainData, problemData []byte) (*formalism.Problem, error) {
	domainDoc, err := DecodeDomain(domainData)
	if err != nil {
		return nil, err
	}
	problemDoc, err := DecodeProblem(problemData)
	if err != nil {
		return nil, err
	}
	return Build(domainDoc, problemDoc)
}

// Build resolves the documents into a domain and a problem over it.
func Build(domainDoc *DomainDocument, problemDoc *ProblemDocument) (*formalism.Problem, error) {
	tables := &functionTables{values: make(map[string]map[string]int)}
	domain, err := buildDomain(domainDoc, tables)
	if err != nil {
		return nil, fmt.Errorf("domain %s: %w", domainDoc.Name, err)
	}
	problem, err := buildProblem(domain, domainDoc, problemDoc, tables)
	if err != nil {
		return nil, fmt.Errorf("problem %s: %w", problemDoc.Name, err)
	}
	return problem, nil
}

func buildDomain(doc *DomainDocument, tables *functionTables) (*formalism.Domain, error) {
	tags, err := inferTags(doc)
	if err != nil {
		return nil, err
	}

	domain := formalism.NewDomain(doc.Name)
	for _, decl := range doc.Types {
		parent, err := resolveType(domain, decl.Parent)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", decl.Name, err)
		}
		if _, err := domain.AddType(decl.Name, parent); err != nil {
			return nil, err
		}
	}
	for _, decl := range doc.Constants {
		typ, err := resolveType(domain, decl.Type)
		if err != nil {
			return nil, fmt.Errorf("constant %s: %w", decl.Name, err)
		}
		if _, err := domain.AddConstant(decl.Name, typ); err != nil {
			return nil, err
		}
	}
	for _, decl := range doc.Predicates {
		if err := addPredicate(domain, decl, tags[decl.Name]); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]struct{}, len(doc.Functions))
	for _, fn := range doc.Functions {
		if _, dup := seen[fn.Name]; dup {
			return nil, fmt.Errorf("%w: function %q declared twice", ErrInvalidTask, fn.Name)
		}
		seen[fn.Name] = struct{}{}
	}

	for _, decl := range doc.Actions {
		schema, err := buildAction(domain, decl, doc.Functions, tables)
		if err != nil {
			return nil, err
		}
		if err := domain.AddAction(schema); err != nil {
			return nil, err
		}
	}
	for _, decl := range doc.Axioms {
		schema, err := buildAxiom(domain, decl)
		if err != nil {
			return nil, err
		}
		if err := domain.AddAxiom(schema); err != nil {
			return nil, err
		}
	}

	if _, err := domain.AxiomStrata(); err != nil {
		return nil, err
	}
	return domain, nil
}

// inferTags decides the tag of every declared predicate.
func inferTags(doc *DomainDocument) (map[string]formalism.Tag, error) {
	heads := make(map[string]bool)
	for _, axiom := range doc.Axioms {
		raw, err := parseLiteral(axiom.Head)
		if err != nil {
			return nil, err
		}
		heads[raw.predicate] = true
	}
	effects := make(map[string]bool)
	for _, action := range doc.Actions {
		texts := append([]string(nil), action.Effect...)
		for _, when := range action.When {
			texts = append(texts, when.Then...)
		}
		raws, err := parseLiterals(texts)
		if err != nil {
			return nil, err
		}
		for _, raw := range raws {
			effects[raw.predicate] = true
		}
	}

	tags := make(map[string]formalism.Tag, len(doc.Predicates))
	for _, decl := range doc.Predicates {
		if heads[decl.Name] && effects[decl.Name] {
			return nil, fmt.Errorf("%w: predicate %q is both derived by an axiom and changed by an action",
				ErrInvalidTask, decl.Name)
		}
		inferred := formalism.Static
		switch {
		case heads[decl.Name]:
			inferred = formalism.Derived
		case effects[decl.Name]:
			inferred = formalism.Fluent
		}
		if decl.Tag == "" {
			tags[decl.Name] = inferred
			continue
		}

		explicit, err := formalism.ParseTag(decl.Tag)
		if err != nil {
			return nil, err
		}
		if inferred != formalism.Static && explicit != inferred {
			return nil, fmt.Errorf("%w: predicate %q is declared %s but used as %s",
				ErrInvalidTask, decl.Name, explicit, inferred)
		}
		tags[decl.Name] = explicit
	}
	return tags, nil
}

func addPredicate(domain *formalism.Domain, decl PredicateDecl, tag formalism.Tag) error {
	arity := decl.Arity
	if len(decl.Params) > 0 {
		if decl.Arity != 0 && decl.Arity != len(decl.Params) {
			return fmt.Errorf("%w: predicate %q has arity %d but %d params",
				ErrInvalidTask, decl.Name, decl.Arity, len(decl.Params))
		}
		arity = len(decl.Params)
	}

	var types []*formalism.Type
	typed := false
	for _, name := range decl.Params {
		typ, err := resolveType(domain, name)
		if err != nil {
			return fmt.Errorf("predicate %s: %w", decl.Name, err)
		}
		typed = typed || typ != nil
		types = append(types, typ)
	}
	if !typed {
		types = nil
	}
	_, err := domain.AddPredicate(decl.Name, tag, arity, types...)
	return err
}

func buildAction(domain *formalism.Domain, decl ActionDecl, funcs []FunctionDecl, tables *functionTables) (*formalism.ActionSchema, error) {
	owner := "action " + decl.Name
	sc, params, err := newScope(domain, owner, decl.Parameters)
	if err != nil {
		return nil, err
	}
	schema := &formalism.ActionSchema{Name: decl.Name, Parameters: params}
	if schema.Precondition, err = sc.literals(decl.Precondition); err != nil {
		return nil, err
	}
	if schema.Effect, err = sc.literals(decl.Effect); err != nil {
		return nil, err
	}
	for _, when := range decl.When {
		var ce formalism.ConditionalEffect
		if ce.Condition, err = sc.literals(when.If); err != nil {
			return nil, err
		}
		if ce.Effect, err = sc.literals(when.Then); err != nil {
			return nil, err
		}
		schema.ConditionalEffects = append(schema.ConditionalEffects, ce)
	}
	if schema.Cost, err = compileCost(decl.Cost, params, funcs, tables); err != nil {
		return nil, fmt.Errorf("%s: %w", owner, err)
	}
	return schema, nil
}

func buildAxiom(domain *formalism.Domain, decl AxiomDecl) (*formalism.AxiomSchema, error) {
	name := decl.Name
	if name == "" {
		name = decl.Head
	}
	sc, params, err := newScope(domain, "axiom "+name, decl.Parameters)
	if err != nil {
		return nil, err
	}
	raw, err := parseLiteral(decl.Head)
	if err != nil {
		return nil, err
	}
	head, err := sc.literal(raw)
	if err != nil {
		return nil, err
	}
	body, err := sc.literals(decl.Body)
	if err != nil {
		return nil, err
	}
	return &formalism.AxiomSchema{Name: decl.Name, Parameters: params, Head: head, Body: body}, nil
}

func buildProblem(domain *formalism.Domain, domainDoc *DomainDocument, doc *ProblemDocument, tables *functionTables) (*formalism.Problem, error) {
	if doc.Domain != "" && doc.Domain != domain.Name {
		return nil, fmt.Errorf("%w: problem is for domain %q, not %q", ErrInvalidTask, doc.Domain, domain.Name)
	}

	problem := formalism.NewProblem(doc.Name, domain)
	for _, decl := range doc.Objects {
		typ, err := resolveType(domain, decl.Type)
		if err != nil {
			return nil, fmt.Errorf("object %s: %w", decl.Name, err)
		}
		if _, err := problem.AddObject(decl.Name, typ); err != nil {
			return nil, err
		}
	}

	initial, err := parseLiterals(doc.Init)
	if err != nil {
		return nil, err
	}
	for _, raw := range initial {
		if raw.negated {
			return nil, fmt.Errorf("%w: negative initial literal %q", ErrInvalidTask, raw.text)
		}
		pred, objects, err := groundLiteral(problem, raw)
		if err != nil {
			return nil, err
		}
		if err := problem.AddInitial(pred, objects...); err != nil {
			return nil, err
		}
	}

	goal, err := parseLiterals(doc.Goal)
	if err != nil {
		return nil, err
	}
	for _, raw := range goal {
		pred, objects, err := groundLiteral(problem, raw)
		if err != nil {
			return nil, err
		}
		if err := problem.AddGoal(pred, raw.negated, objects...); err != nil {
			return nil, err
		}
	}

	if err := fillTables(problem, domainDoc.Functions, doc.Functions, tables); err != nil {
		return nil, err
	}
	return problem, nil
}

func groundLiteral(problem *formalism.Problem, raw rawLiteral) (*formalism.Predicate, []*formalism.Object, error) {
	pred, ok := problem.Domain.Predicate(raw.predicate)
	if !ok {
		return nil, nil, fmt.Errorf("%w: predicate %q in %q", formalism.ErrUnknownSymbol, raw.predicate, raw.text)
	}
	objects := make([]*formalism.Object, len(raw.args))
	for i, name := range raw.args {
		if strings.HasPrefix(name, "?") {
			return nil, nil, fmt.Errorf("%w: variable %s in ground literal %q", ErrInvalidTask, name, raw.text)
		}
		obj, ok := problem.Object(name)
		if !ok {
			return nil, nil, fmt.Errorf("%w: object %q in %q", formalism.ErrUnknownSymbol, name, raw.text)
		}
		objects[i] = obj
	}
	return pred, objects, nil
}

func fillTables(problem *formalism.Problem, decls []FunctionDecl, values map[string][]FunctionValue, tables *functionTables) error {
	arity := make(map[string]int, len(decls))
	for _, fn := range decls {
		arity[fn.Name] = fn.Arity
	}
	for name, entries := range values {
		n, ok := arity[name]
		if !ok {
			return fmt.Errorf("%w: function %q", formalism.ErrUnknownSymbol, name)
		}
		table := make(map[string]int, len(entries))
		for _, entry := range entries {
			if len(entry.Args) != n {
				return fmt.Errorf("%w: function %q expects %d arguments, got %d",
					ErrInvalidTask, name, n, len(entry.Args))
			}
			for _, arg := range entry.Args {
				if _, ok := problem.Object(arg); !ok {
					return fmt.Errorf("%w: object %q in function %q", formalism.ErrUnknownSymbol, arg, name)
				}
			}
			key := strings.Join(entry.Args, " ")
			if _, dup := table[key]; dup {
				return fmt.Errorf("%w: function %q has two values for (%s)", ErrInvalidTask, name, key)
			}
			table[key] = entry.Value
		}
		tables.values[name] = table
	}
	return nil
}
