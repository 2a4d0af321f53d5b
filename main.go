// Command nilla builds, enters and documents Nilla projects.
package main

import "github.com/nilla-nix/nilla-cli/cmd"

func main() {
	cmd.Execute()
}
