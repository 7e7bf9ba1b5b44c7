package main

import "github.com/moyu-x/folder-sorter/cmd"

func main() {
	cmd.Execute()
}
