// Command mediumctl inspects and modifies storage media.
package main

import "github.com/mesh-intelligence/mediums/internal/cli"

func main() {
	cli.Execute()
}
