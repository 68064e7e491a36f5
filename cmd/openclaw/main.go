package main

import "github.com/phazurlabs/openclaw-fortress/internal/cli"

func main() {
	cli.Execute()
}
