package main

import "lecture-rag/internal/cli"

func main() {
	cli.Execute()
}
