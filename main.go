package main

import "github.com/wundergraph/github-graphql-proxy/cmd"

func main() {
	cmd.Execute()
}
