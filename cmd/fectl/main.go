package main

import "github.com/rileyL6122428/FriEnds-backend/internal/cli"

func main() {
	cli.Execute()
}
