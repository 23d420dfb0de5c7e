package main

import "github.com/iksnae/prattle/cmd"

func main() {
	cmd.Execute()
}
