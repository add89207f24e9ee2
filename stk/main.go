// Command stk tracks a stock portfolio across currencies.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/stocktracker/cmd"
	"github.com/etnz/stocktracker/docs"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// completion describes the commands and flags of commander for shell completion.
func completion(commander *subcommands.Commander) *complete.Command {
	root := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: make(map[string]complete.Predictor),
	}
	flags := func(fs *flag.FlagSet, into map[string]complete.Predictor) {
		fs.VisitAll(func(f *flag.Flag) {
			switch f.Name {
			case "config":
				into[f.Name] = predict.Files("*.yaml")
			case "db":
				into[f.Name] = predict.Files("*.json")
			default:
				into[f.Name] = predict.Something
			}
		})
	}
	flags(flag.CommandLine, root.Flags)

	commander.VisitCommands(func(_ *subcommands.CommandGroup, c subcommands.Command) {
		fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		c.SetFlags(fs)
		sub := &complete.Command{Flags: make(map[string]complete.Predictor)}
		flags(fs, sub.Flags)
		if c.Name() == "report" {
			sub.Args = predict.Set{"diversification", "monthly", "currencies", "activity"}
		}
		if c.Name() == "add" {
			sub.Args = predict.Set{"buy", "sell"}
		}
		if c.Name() == "topic" {
			topics, _ := docs.Topics()
			sub.Args = predict.Set(topics)
		}
		root.Sub[c.Name()] = sub
	})
	return root
}

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	// exits when invoked by the shell for completion.
	completion(commander).Complete(path.Base(os.Args[0]))

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
