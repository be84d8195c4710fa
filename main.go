package main

import "github.com/frahmantamala/academy-portal/cmd"

func main() {
	cmd.Execute()
}
