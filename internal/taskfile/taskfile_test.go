package taskfile

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/goplanner/pkg/aag"
	"github.com/gitrdm/goplanner/pkg/formalism"
	"github.com/gitrdm/goplanner/pkg/search"
	"github.com/gitrdm/goplanner/pkg/statestore"
)

func load(t *testing.T, name string) *formalism.Problem {
	t.Helper()
	problem, err := Load(
		filepath.Join("testdata", name+"-domain.yaml"),
		filepath.Join("testdata", name+"-problem.yaml"),
	)
	require.NoError(t, err)
	return problem
}

func solve(t *testing.T, problem *formalism.Problem, mode aag.Mode) search.Result {
	t.Helper()
	gen, err := aag.New(context.Background(), mode, problem, aag.Options{})
	require.NoError(t, err)
	store := statestore.NewStore(problem, gen.AxiomEvaluator())
	result := search.NewAStar(store, gen, search.Blind{}).FindSolution(context.Background(), nil)
	if result.Status == search.Solved {
		_, err := search.VerifyPlan(store, nil, result.Plan)
		require.NoError(t, err)
	}
	return result
}

func predicateTag(t *testing.T, problem *formalism.Problem, name string) formalism.Tag {
	t.Helper()
	pred, ok := problem.Domain.Predicate(name)
	require.True(t, ok, name)
	return pred.Tag
}

func TestLoadGripper(t *testing.T) {
	problem := load(t, "gripper")
	assert.Equal(t, "gripper-2", problem.Name)
	assert.Len(t, problem.Objects(), 6)
	assert.Len(t, problem.Domain.Actions(), 3)
	assert.Equal(t, formalism.Static, predicateTag(t, problem, "connected"))
	assert.Equal(t, formalism.Fluent, predicateTag(t, problem, "at-robby"))
	assert.Equal(t, 2, problem.InitialStatic().Count())
	assert.Equal(t, 5, problem.InitialFluent().Count())

	for _, mode := range []aag.Mode{aag.ModeLifted, aag.ModeGrounded} {
		result := solve(t, problem, mode)
		require.Equal(t, search.Solved, result.Status, mode)
		assert.Equal(t, 5, result.Plan.Cost, mode)
	}
}

func TestLoadBlocksworldInfersDerivedPredicates(t *testing.T) {
	problem := load(t, "blocksworld")
	for _, name := range []string{"covered", "clear", "above"} {
		assert.Equal(t, formalism.Derived, predicateTag(t, problem, name), name)
	}
	assert.Equal(t, formalism.Fluent, predicateTag(t, problem, "handempty"))

	strata, err := problem.Domain.AxiomStrata()
	require.NoError(t, err)
	assert.Len(t, strata, 2, "clear negates covered")

	result := solve(t, problem, aag.ModeGrounded)
	require.Equal(t, search.Solved, result.Status)
	assert.Equal(t, 6, result.Plan.Cost)
}

func TestCostExpressions(t *testing.T) {
	problem := load(t, "travel")
	domain := problem.Domain
	obj := func(name string) *formalism.Object {
		o, ok := problem.Object(name)
		require.True(t, ok)
		return o
	}
	x, y, z := obj("x"), obj("y"), obj("z")
	drive, fly := domain.Actions()[0], domain.Actions()[1]

	cost, ok := drive.CostOf([]*formalism.Object{x, y})
	assert.True(t, ok)
	assert.Equal(t, 2, cost)

	_, ok = drive.CostOf([]*formalism.Object{x, z})
	assert.False(t, ok, "distance(x, z) is undefined")

	cost, ok = fly.CostOf([]*formalism.Object{x, x})
	assert.True(t, ok)
	assert.Zero(t, cost)

	cost, ok = fly.CostOf([]*formalism.Object{z, x})
	assert.True(t, ok)
	assert.Equal(t, 10, cost)

	result := solve(t, problem, aag.ModeLifted)
	require.Equal(t, search.Solved, result.Status)
	assert.Equal(t, 5, result.Plan.Cost)
	require.Len(t, result.Plan.Actions, 2)
	assert.Equal(t, "(drive x y)", result.Plan.Actions[0].String())
	assert.Equal(t, "(drive y z)", result.Plan.Actions[1].String())
}

func TestConstantCost(t *testing.T) {
	cost, err := compileCost("3", nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, formalism.ConstantCost(3), cost)

	cost, err = compileCost("", nil, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, cost)

	_, err = compileCost("-1", nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidTask)
}

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		in      string
		negated bool
		pred    string
		args    []string
		wantErr bool
	}{
		{in: "at ?b ?r", pred: "at", args: []string{"?b", "?r"}},
		{in: "(carry ?b left)", pred: "carry", args: []string{"?b", "left"}},
		{in: "not free ?g", negated: true, pred: "free", args: []string{"?g"}},
		{in: "not (on a b)", negated: true, pred: "on", args: []string{"a", "b"}},
		{in: "(handempty)", pred: "handempty", args: []string{}},
		{in: "  ", wantErr: true},
		{in: "not", wantErr: true},
		{in: "on (a b)", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			lit, err := parseLiteral(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTask)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.negated, lit.negated)
			assert.Equal(t, tt.pred, lit.predicate)
			assert.Equal(t, tt.args, lit.args)
		})
	}
}

const tinyDomain = `
domain: tiny
predicates:
  - {name: p, arity: 0}
  - {name: q, arity: 1}
actions:
  - name: a
    precondition: ["not p"]
    effect: ["p"]
`

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		domain  string
		problem string
		target  error
	}{
		{
			name:    "unknown field",
			domain:  tinyDomain + "extra: 1\n",
			problem: "problem: t\n",
			target:  ErrInvalidTask,
		},
		{
			name:    "missing domain name",
			domain:  "predicates: []\n",
			problem: "problem: t\n",
			target:  ErrInvalidTask,
		},
		{
			name:    "bad tag value",
			domain:  "domain: d\npredicates:\n  - {name: p, tag: dynamic}\n",
			problem: "problem: t\n",
			target:  ErrInvalidTask,
		},
		{
			name:    "unknown predicate in action",
			domain:  "domain: d\nactions:\n  - {name: a, effect: [\"r\"]}\n",
			problem: "problem: t\n",
			target:  formalism.ErrUnknownSymbol,
		},
		{
			name:    "unknown parameter",
			domain:  "domain: d\npredicates:\n  - {name: q, arity: 1}\nactions:\n  - {name: a, effect: [\"q ?x\"]}\n",
			problem: "problem: t\n",
			target:  formalism.ErrUnknownSymbol,
		},
		{
			name: "explicit static changed by action",
			domain: "domain: d\npredicates:\n  - {name: p, arity: 0, tag: static}\n" +
				"actions:\n  - {name: a, effect: [\"p\"]}\n",
			problem: "problem: t\n",
			target:  ErrInvalidTask,
		},
		{
			name: "derived and changed",
			domain: "domain: d\npredicates:\n  - {name: p, arity: 0}\n" +
				"actions:\n  - {name: a, effect: [\"p\"]}\naxioms:\n  - {head: p}\n",
			problem: "problem: t\n",
			target:  ErrInvalidTask,
		},
		{
			name: "negative cycle",
			domain: "domain: d\npredicates:\n  - {name: p, arity: 0}\n" +
				"axioms:\n  - {head: p, body: [\"not p\"]}\n",
			problem: "problem: t\n",
			target:  formalism.ErrUnsupported,
		},
		{
			name:    "bad cost expression",
			domain:  "domain: d\nactions:\n  - {name: a, cost: \"unknown + 1\"}\n",
			problem: "problem: t\n",
			target:  ErrInvalidTask,
		},
		{
			name:    "domain mismatch",
			domain:  tinyDomain,
			problem: "problem: t\ndomain: other\n",
			target:  ErrInvalidTask,
		},
		{
			name:    "negative initial literal",
			domain:  tinyDomain,
			problem: "problem: t\ninit: [\"not p\"]\n",
			target:  ErrInvalidTask,
		},
		{
			name:    "variable in goal",
			domain:  tinyDomain,
			problem: "problem: t\nobjects: [{name: o}]\ngoal: [\"q ?x\"]\n",
			target:  ErrInvalidTask,
		},
		{
			name:    "unknown object",
			domain:  tinyDomain,
			problem: "problem: t\ngoal: [\"q o\"]\n",
			target:  formalism.ErrUnknownSymbol,
		},
		{
			name:    "undeclared function",
			domain:  tinyDomain,
			problem: "problem: t\nfunctions:\n  f: [{args: [], value: 1}]\n",
			target:  formalism.ErrUnknownSymbol,
		},
		{
			name:    "duplicate object",
			domain:  tinyDomain,
			problem: "problem: t\nobjects: [{name: o}, {name: o}]\n",
			target:  formalism.ErrDuplicateSymbol,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.domain), []byte(tt.problem))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestTinyTaskSolves(t *testing.T) {
	problem, err := Parse([]byte(tinyDomain), []byte("problem: t\ngoal: [p]\n"))
	require.NoError(t, err)
	assert.Equal(t, formalism.Fluent, predicateTag(t, problem, "p"))
	assert.Equal(t, formalism.Static, predicateTag(t, problem, "q"))

	result := solve(t, problem, aag.ModeLifted)
	require.Equal(t, search.Solved, result.Status)
	assert.Equal(t, 1, result.Plan.Cost)
}
