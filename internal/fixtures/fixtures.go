// Package fixtures builds small planning problems shared by the package
// tests: the three acceptance scenarios, gripper, blocksworld with derived
// predicates, and a conditional-effect switch domain.
package fixtures

import (
	"fmt"

	"github.com/gitrdm/goplanner/pkg/formalism"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("fixtures: %v", err))
	}
	return v
}

func check(err error) {
	if err != nil {
		panic(fmt.Sprintf("fixtures: %v", err))
	}
}

// ScenarioA has one fluent atom p and one action a with precondition not p,
// effect p and cost 1. The goal is p.
func ScenarioA() *formalism.Problem {
	domain, p := singleAtomDomain()
	problem := formalism.NewProblem("scenario-a", domain)
	check(problem.AddGoal(p, false))
	return problem
}

// ScenarioB is ScenarioA with goal q, which no action ever adds.
func ScenarioB() *formalism.Problem {
	domain, _ := singleAtomDomain()
	q := must(domain.AddPredicate("q", formalism.Fluent, 0))
	problem := formalism.NewProblem("scenario-b", domain)
	check(problem.AddGoal(q, false))
	return problem
}

// ScenarioC has a static goal atom that is absent from the initial state.
func ScenarioC() *formalism.Problem {
	domain, p := singleAtomDomain()
	s := must(domain.AddPredicate("s", formalism.Static, 0))
	problem := formalism.NewProblem("scenario-c", domain)
	check(problem.AddGoal(s, false))
	check(problem.AddGoal(p, false))
	return problem
}

func singleAtomDomain() (*formalism.Domain, *formalism.Predicate) {
	domain := formalism.NewDomain("single-atom")
	p := must(domain.AddPredicate("p", formalism.Fluent, 0))
	check(domain.AddAction(&formalism.ActionSchema{
		Name:         "a",
		Precondition: []formalism.Literal{formalism.Neg(p)},
		Effect:       []formalism.Literal{formalism.Pos(p)},
		Cost:         formalism.ConstantCost(1),
	}))
	return domain, p
}

// Gripper builds the classic gripper problem with two rooms, two grippers
// and the given number of balls, all starting in rooma with goal roomb.
// Rooms are linked by a static connected relation.
func Gripper(balls int) *formalism.Problem {
	domain := formalism.NewDomain("gripper")
	room := must(domain.AddType("room", nil))
	ball := must(domain.AddType("ball", nil))
	gripper := must(domain.AddType("gripper", nil))

	connected := must(domain.AddPredicate("connected", formalism.Static, 2, room, room))
	atRobby := must(domain.AddPredicate("at-robby", formalism.Fluent, 1, room))
	at := must(domain.AddPredicate("at", formalism.Fluent, 2, ball, room))
	free := must(domain.AddPredicate("free", formalism.Fluent, 1, gripper))
	carry := must(domain.AddPredicate("carry", formalism.Fluent, 2, ball, gripper))

	p := formalism.Param
	check(domain.AddAction(&formalism.ActionSchema{
		Name:       "move",
		Parameters: []formalism.Parameter{{Name: "from", Type: room}, {Name: "to", Type: room}},
		Precondition: []formalism.Literal{
			formalism.Pos(atRobby, p(0)),
			formalism.Pos(connected, p(0), p(1)),
		},
		Effect: []formalism.Literal{
			formalism.Pos(atRobby, p(1)),
			formalism.Neg(atRobby, p(0)),
		},
	}))
	check(domain.AddAction(&formalism.ActionSchema{
		Name:       "pick",
		Parameters: []formalism.Parameter{{Name: "b", Type: ball}, {Name: "r", Type: room}, {Name: "g", Type: gripper}},
		Precondition: []formalism.Literal{
			formalism.Pos(at, p(0), p(1)),
			formalism.Pos(atRobby, p(1)),
			formalism.Pos(free, p(2)),
		},
		Effect: []formalism.Literal{
			formalism.Pos(carry, p(0), p(2)),
			formalism.Neg(at, p(0), p(1)),
			formalism.Neg(free, p(2)),
		},
	}))
	check(domain.AddAction(&formalism.ActionSchema{
		Name:       "drop",
		Parameters: []formalism.Parameter{{Name: "b", Type: ball}, {Name: "r", Type: room}, {Name: "g", Type: gripper}},
		Precondition: []formalism.Literal{
			formalism.Pos(carry, p(0), p(2)),
			formalism.Pos(atRobby, p(1)),
		},
		Effect: []formalism.Literal{
			formalism.Pos(at, p(0), p(1)),
			formalism.Pos(free, p(2)),
			formalism.Neg(carry, p(0), p(2)),
		},
	}))

	problem := formalism.NewProblem(fmt.Sprintf("gripper-%d", balls), domain)
	rooma := must(problem.AddObject("rooma", room))
	roomb := must(problem.AddObject("roomb", room))
	left := must(problem.AddObject("left", gripper))
	right := must(problem.AddObject("right", gripper))

	check(problem.AddInitial(connected, rooma, roomb))
	check(problem.AddInitial(connected, roomb, rooma))
	check(problem.AddInitial(atRobby, rooma))
	check(problem.AddInitial(free, left))
	check(problem.AddInitial(free, right))
	for i := 1; i <= balls; i++ {
		b := must(problem.AddObject(fmt.Sprintf("ball%d", i), ball))
		check(problem.AddInitial(at, b, rooma))
		check(problem.AddGoal(at, false, b, roomb))
	}
	return problem
}

// BlocksworldDomain builds a typed blocksworld where clear is a derived
// predicate:
//
//	covered(x) <- on(y, x)
//	clear(x)   <- not covered(x), not holding(x)
//	above(x,y) <- on(x, y)
//	above(x,z) <- on(x, y), above(y, z)
//
// covered and above sit in the first stratum, clear in the second.
func BlocksworldDomain() *formalism.Domain {
	domain := formalism.NewDomain("blocksworld-axioms")
	block := must(domain.AddType("block", nil))

	on := must(domain.AddPredicate("on", formalism.Fluent, 2, block, block))
	ontable := must(domain.AddPredicate("ontable", formalism.Fluent, 1, block))
	holding := must(domain.AddPredicate("holding", formalism.Fluent, 1, block))
	handempty := must(domain.AddPredicate("handempty", formalism.Fluent, 0))
	covered := must(domain.AddPredicate("covered", formalism.Derived, 1, block))
	clear := must(domain.AddPredicate("clear", formalism.Derived, 1, block))
	above := must(domain.AddPredicate("above", formalism.Derived, 2, block, block))

	p := formalism.Param
	blockParams := func(names ...string) []formalism.Parameter {
		params := make([]formalism.Parameter, len(names))
		for i, name := range names {
			params[i] = formalism.Parameter{Name: name, Type: block}
		}
		return params
	}

	check(domain.AddAxiom(&formalism.AxiomSchema{
		Name:       "covered",
		Parameters: blockParams("x", "y"),
		Body:       []formalism.Literal{formalism.Pos(on, p(1), p(0))},
		Head:       formalism.Pos(covered, p(0)),
	}))
	check(domain.AddAxiom(&formalism.AxiomSchema{
		Name:       "clear",
		Parameters: blockParams("x"),
		Body:       []formalism.Literal{formalism.Neg(covered, p(0)), formalism.Neg(holding, p(0))},
		Head:       formalism.Pos(clear, p(0)),
	}))
	check(domain.AddAxiom(&formalism.AxiomSchema{
		Name:       "above-base",
		Parameters: blockParams("x", "y"),
		Body:       []formalism.Literal{formalism.Pos(on, p(0), p(1))},
		Head:       formalism.Pos(above, p(0), p(1)),
	}))
	check(domain.AddAxiom(&formalism.AxiomSchema{
		Name:       "above-step",
		Parameters: blockParams("x", "y", "z"),
		Body:       []formalism.Literal{formalism.Pos(on, p(0), p(1)), formalism.Pos(above, p(1), p(2))},
		Head:       formalism.Pos(above, p(0), p(2)),
	}))

	check(domain.AddAction(&formalism.ActionSchema{
		Name:       "pickup",
		Parameters: blockParams("x"),
		Precondition: []formalism.Literal{
			formalism.Pos(clear, p(0)),
			formalism.Pos(ontable, p(0)),
			formalism.Pos(handempty),
		},
		Effect: []formalism.Literal{
			formalism.Pos(holding, p(0)),
			formalism.Neg(ontable, p(0)),
			formalism.Neg(handempty),
		},
	}))
	check(domain.AddAction(&formalism.ActionSchema{
		Name:         "putdown",
		Parameters:   blockParams("x"),
		Precondition: []formalism.Literal{formalism.Pos(holding, p(0))},
		Effect: []formalism.Literal{
			formalism.Pos(ontable, p(0)),
			formalism.Pos(handempty),
			formalism.Neg(holding, p(0)),
		},
	}))
	check(domain.AddAction(&formalism.ActionSchema{
		Name:       "stack",
		Parameters: blockParams("x", "y"),
		Precondition: []formalism.Literal{
			formalism.Pos(holding, p(0)),
			formalism.Pos(clear, p(1)),
		},
		Effect: []formalism.Literal{
			formalism.Pos(on, p(0), p(1)),
			formalism.Pos(handempty),
			formalism.Neg(holding, p(0)),
		},
	}))
	check(domain.AddAction(&formalism.ActionSchema{
		Name:       "unstack",
		Parameters: blockParams("x", "y"),
		Precondition: []formalism.Literal{
			formalism.Pos(on, p(0), p(1)),
			formalism.Pos(clear, p(0)),
			formalism.Pos(handempty),
		},
		Effect: []formalism.Literal{
			formalism.Pos(holding, p(0)),
			formalism.Neg(on, p(0), p(1)),
			formalism.Neg(handempty),
		},
	}))
	return domain
}

// Blocksworld builds a three-block problem: c on a, a and b on the table.
// The goal is the tower a on b on c, i.e. on(a,b), on(b,c).
func Blocksworld() *formalism.Problem {
	domain := BlocksworldDomain()
	block, _ := domain.Type("block")
	on, _ := domain.Predicate("on")
	ontable, _ := domain.Predicate("ontable")
	handempty, _ := domain.Predicate("handempty")

	problem := formalism.NewProblem("blocksworld-3", domain)
	a := must(problem.AddObject("a", block))
	b := must(problem.AddObject("b", block))
	c := must(problem.AddObject("c", block))

	check(problem.AddInitial(on, c, a))
	check(problem.AddInitial(ontable, a))
	check(problem.AddInitial(ontable, b))
	check(problem.AddInitial(handempty))

	check(problem.AddGoal(on, false, a, b))
	check(problem.AddGoal(on, false, b, c))
	return problem
}

// BlocksworldAbove is Blocksworld with the derived goal above(a, c) only.
func BlocksworldAbove() *formalism.Problem {
	problem := Blocksworld()
	fresh := formalism.NewProblem("blocksworld-above", problem.Domain)
	for _, obj := range problem.Objects() {
		must(fresh.AddObject(obj.Name, obj.Type))
	}
	table := problem.Atoms(formalism.Fluent)
	problem.InitialFluent().Iterate(func(id int) {
		atom := table.Get(id)
		objects := make([]*formalism.Object, len(atom.Objects))
		for i, oid := range atom.Objects {
			objects[i] = fresh.ObjectByID(oid)
		}
		check(fresh.AddInitial(atom.Predicate, objects...))
	})
	above, _ := fresh.Domain.Predicate("above")
	a, _ := fresh.Object("a")
	c, _ := fresh.Object("c")
	check(fresh.AddGoal(above, false, a, c))
	return fresh
}

// Switches builds a domain with one action flip(s) whose two conditional
// effects toggle on(s). Both guards are evaluated against the state before
// the action, so a flip always toggles exactly once.
func Switches(count int) *formalism.Problem {
	domain := formalism.NewDomain("switches")
	sw := must(domain.AddType("switch", nil))
	on := must(domain.AddPredicate("on", formalism.Fluent, 1, sw))

	p := formalism.Param
	check(domain.AddAction(&formalism.ActionSchema{
		Name:       "flip",
		Parameters: []formalism.Parameter{{Name: "s", Type: sw}},
		ConditionalEffects: []formalism.ConditionalEffect{
			{
				Condition: []formalism.Literal{formalism.Pos(on, p(0))},
				Effect:    []formalism.Literal{formalism.Neg(on, p(0))},
			},
			{
				Condition: []formalism.Literal{formalism.Neg(on, p(0))},
				Effect:    []formalism.Literal{formalism.Pos(on, p(0))},
			},
		},
		Cost: formalism.ConstantCost(2),
	}))

	problem := formalism.NewProblem(fmt.Sprintf("switches-%d", count), domain)
	for i := 1; i <= count; i++ {
		s := must(problem.AddObject(fmt.Sprintf("s%d", i), sw))
		check(problem.AddGoal(on, false, s))
	}
	return problem
}
