package main

import "github.com/sitelens/photo-ingest/pkg/cli"

func main() {
	cli.Execute()
}
