package main

import "github.com/nextlevelbuilder/visionvoice/cmd"

func main() {
	cmd.Execute()
}
