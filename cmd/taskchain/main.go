// Command taskchain is the reference CLI entrypoint over internal/chaincli:
// a thin wiring layer, in the same relationship the teacher's
// cmd/turbo/main.go has to its own concrete, JS-package-domain
// internals (internal/run, internal/prune, internal/login). Unlike
// turbo, TaskChain is a library consumed by an enclosing application
// (spec §6, §9): task classes come from a compile-time registry, not
// runtime dotted-path lookup, so an application embedding this module
// forks this file and registers its own internal/taskdef.TaskClass
// values and internal/parameter.ObjectRegistry entries before calling
// App.Main.
package main

import (
	"os"

	"github.com/taskchain-go/taskchain/internal/chaincli"
	"github.com/taskchain-go/taskchain/internal/parameter"
	"github.com/taskchain-go/taskchain/internal/taskresolve"
)

var version = "dev"

func main() {
	registry := taskresolve.NewRegistry()
	objects := parameter.NewObjectRegistry()

	// An embedding application registers its task classes and parameter
	// object constructors here, e.g.:
	//
	//   registry.Register(mypkg.BuildArtifactTaskClass)
	//   objects.Register("mypkg.S3Location", mypkg.NewS3Location)

	app := &chaincli.App{Registry: registry, Objects: objects}
	os.Exit(app.Main("chain", version, os.Args[1:]))
}
