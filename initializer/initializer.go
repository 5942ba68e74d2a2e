// Package initializer assembles a working service out of the parts: a
// registry with the core functions installed, a sandbox context with the
// system scope populated, a module loader, and the evaluator tying them
// together. Everything the REPL or an embedding application does goes
// through a Service.
package initializer

import (
	"io"

	"github.com/vara-lang/vara/builtins"
	"github.com/vara-lang/vara/checker"
	"github.com/vara-lang/vara/database"
	"github.com/vara-lang/vara/evaluator"
	"github.com/vara-lang/vara/module"
	"github.com/vara-lang/vara/object"
	"github.com/vara-lang/vara/parser"
	"github.com/vara-lang/vara/reason"
	"github.com/vara-lang/vara/registry"
	"github.com/vara-lang/vara/sandbox"
	"github.com/vara-lang/vara/settings"
	"github.com/vara-lang/vara/sysvars"
	"github.com/vara-lang/vara/token"
)

var setupTok = token.Token{Source: "service setup"}

type Service struct {
	Settings settings.Settings
	Reg      *registry.Registry
	Rt       *evaluator.Runtime
	Ctx      *sandbox.Context

	mapModules    *module.MapLoader
	sourceModules map[string]string
}

// NewService wires up a runtime with the given settings, sending script
// output to out and answering 'reason' calls with the given provider (nil
// means the deterministic echo provider).
func NewService(conf settings.Settings, out io.Writer, provider reason.Provider) (*Service, *object.Error) {
	s := &Service{
		Settings:      conf,
		Reg:           registry.New(),
		mapModules:    module.NewMapLoader(),
		sourceModules: map[string]string{},
	}
	s.Rt = evaluator.NewRuntime(s.Reg, module.NewCycleGuard(s))
	s.Ctx = sandbox.NewContext()

	for name, v := range sysvars.Sysvars {
		s.Ctx.System.Set(name, v.Dflt)
	}
	if err := s.SetSysVar("deadline_ms", &object.Integer{Value: conf.DeadlineMs}); err != nil {
		return nil, err
	}
	if err := s.SetSysVar("typecheck", object.MakeBool(conf.TypeCheck)); err != nil {
		return nil, err
	}
	if err := s.SetSysVar("view", &object.String{Value: conf.View}); err != nil {
		return nil, err
	}

	if err := builtins.RegisterCore(s.Reg, out); err != nil {
		return nil, err
	}
	if err := builtins.RegisterCrypto(s.Reg); err != nil {
		return nil, err
	}
	if provider == nil {
		provider = reason.EchoProvider{}
	}
	if err := builtins.RegisterReason(s.Reg, provider); err != nil {
		return nil, err
	}
	return s, nil
}

// SetSysVar is the runtime's privileged write path into the system scope.
// The value must pass the variable's validator.
func (s *Service) SetSysVar(name string, value object.Object) *object.Error {
	v, ok := sysvars.Sysvars[name]
	if !ok {
		return object.CreateErr("eval/ident/found", setupTok, "system."+name)
	}
	if complaint := v.Validator(value); complaint != "" {
		return &object.Error{ErrorId: "sysvar/validate", Message: complaint, Token: setupTok}
	}
	s.Ctx.System.Set(name, value)
	return nil
}

// AttachStore makes an open database reachable from scripts as the 'db'
// namespace.
func (s *Service) AttachStore(store *database.Store) *object.Error {
	return database.RegisterHost(s.Reg, store)
}

// AddModule supplies a module programmatically.
func (s *Service) AddModule(name string, bindings map[string]object.Object) {
	s.mapModules.Add(name, bindings)
}

// AddSourceModule supplies a module as source text, compiled and run on
// first import.
func (s *Service) AddSourceModule(name, source string) {
	s.sourceModules[name] = source
}

// Load makes the Service the evaluator's module loader: source modules
// first, then the programmatic table.
func (s *Service) Load(name string, tok token.Token) (map[string]object.Object, *object.Error) {
	source, ok := s.sourceModules[name]
	if !ok {
		return s.mapModules.Load(name, tok)
	}
	program, errs := parser.Parse(name, source)
	if len(errs) > 0 {
		return nil, object.CreateErr("mod/run", tok, name, errs[0].Message)
	}
	modCtx := s.Ctx.Child()
	modRt := &evaluator.Runtime{Reg: s.Reg, Loader: s.Rt.Loader, Namespace: name}
	if result := evaluator.Eval(program, modRt, modCtx); object.IsError(result) {
		return nil, object.CreateErr("mod/run", tok, name, result.(*object.Error).Message)
	}
	bindings := map[string]object.Object{}
	for _, varName := range modCtx.Local.Names() {
		value, _ := modCtx.Local.Get(varName)
		bindings[varName] = value
	}
	return bindings, nil
}

// Run takes a program through the whole pipeline: parse, validate,
// optionally type-check, then execute. Parse and type errors come back in
// the error list and nothing is executed; a runtime failure comes back as
// the result object. Each run gets a fresh local scope; what a program
// wants to survive into the next run it must put in 'private' or
// 'public'.
func (s *Service) Run(sourceName, input string) (object.Object, object.Errors) {
	program, errs := parser.Parse(sourceName, input)
	if len(errs) > 0 {
		return nil, errs
	}
	if s.typeCheckOn() {
		if typeErrs := checker.Check(program); len(typeErrs) > 0 {
			return nil, typeErrs
		}
	}
	return evaluator.Eval(program, s.Rt, s.Ctx.Child()), nil
}

// RunLine is Run for a single REPL line, skipping the static pass so that
// a line can use variables made by earlier lines.
func (s *Service) RunLine(sourceName, input string) (object.Object, object.Errors) {
	program, errs := parser.Parse(sourceName, input)
	if len(errs) > 0 {
		return nil, errs
	}
	return evaluator.Eval(program, s.Rt, s.Ctx), nil
}

func (s *Service) typeCheckOn() bool {
	value, ok := s.Ctx.System.Get("typecheck")
	if !ok {
		return true
	}
	boolean, ok := value.(*object.Boolean)
	return !ok || boolean.Value
}
