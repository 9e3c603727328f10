// Command querystudy serves the study API and manages its database.
package main

import (
	"os"

	"github.com/deicod/querystudy/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
