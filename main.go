// reactome-sbml exports Reactome pathways and reactions as SBML Level 3
// documents.
//
// Records are read from a Reactome graph database, a gk_central relational
// database, or an offline snapshot taken from either.
package main

import (
	"fmt"
	"os"

	"github.com/Benny93/reactome-sbml/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
