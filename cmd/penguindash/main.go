// penguindash serves an interactive dashboard over the Palmer penguins data.
package main

import (
	"os"

	"penguindash/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
