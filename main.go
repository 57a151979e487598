package main

import "github.com/diting-rss/diting/cmd"

func main() {
	cmd.Execute()
}
