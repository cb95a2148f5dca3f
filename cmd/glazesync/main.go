package main

import "github.com/bryanchriswhite/glazesync/cmd/glazesync/commands"

func main() {
	commands.Execute()
}
