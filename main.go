package main

import "github.com/pbaricco/kimai-cli/cmd"

func main() {
	cmd.Execute()
}
