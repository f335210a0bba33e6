package main

import "github.com/oshokin/garage-door/cmd/garage-door/cmd"

func main() {
	cmd.Execute()
}
