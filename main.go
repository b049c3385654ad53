package main

import "github.com/brensch/pubparquet/cmd"

func main() {
	cmd.Execute()
}
