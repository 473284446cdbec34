// acc - Academic Calendar Core
//
// acc extracts course identifiers, academic keywords and deadlines from
// informal chat messages and resolves the deadlines to calendar dates.
package main

import (
	"os"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
