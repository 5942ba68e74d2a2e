package main

import (
	"fmt"
	"os"

	"github.com/vara-lang/vara/hub"
	"github.com/vara-lang/vara/initializer"
	"github.com/vara-lang/vara/object"
	"github.com/vara-lang/vara/repl"
	"github.com/vara-lang/vara/settings"
	"github.com/vara-lang/vara/text"
)

// Run with no arguments, this starts the hub and its REPL. Given the
// filepath of a script, it runs the script once and the exit code says how
// that went: 0 for success, 1 for a runtime error, 2 if the script didn't
// get past the parser or the type checker.

const configFile = "vara.yml"

func main() {
	conf, err := settings.Load(configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, text.ERROR+err.Error())
		os.Exit(2)
	}

	if len(os.Args) > 1 {
		os.Exit(runScript(conf, os.Args[1]))
	}

	fmt.Print(text.Logo())
	hb := hub.New(conf, os.Stdin, os.Stdout)
	repl.Start(hb, os.Stdin, os.Stdout)
}

func runScript(conf settings.Settings, scriptFilepath string) int {
	code, err := os.ReadFile(scriptFilepath)
	if err != nil {
		fmt.Fprintln(os.Stderr, text.ERROR+err.Error())
		return 2
	}
	service, initErr := initializer.NewService(conf, os.Stdout, nil)
	if initErr != nil {
		fmt.Fprintln(os.Stderr, text.ERROR+initErr.Message)
		return 2
	}
	result, errs := service.Run(scriptFilepath, string(code))
	if len(errs) > 0 {
		fmt.Fprint(os.Stderr, errs.String())
		return 2
	}
	if e, isError := result.(*object.Error); isError {
		fmt.Fprintln(os.Stderr, e.Inspect(object.ViewStdOut))
		return 1
	}
	return 0
}
