package main

import "github.com/frahmantamala/association-treasury/cmd"

func main() {
	cmd.Execute()
}
