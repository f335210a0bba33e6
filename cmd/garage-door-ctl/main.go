package main

import "github.com/oshokin/garage-door/cmd/garage-door-ctl/cmd"

func main() {
	cmd.Execute()
}
