package main

import "github.com/drgolem/oggplay/cmd"

func main() {
	cmd.Execute()
}
