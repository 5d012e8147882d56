package main

import "github.com/oshokin/can-sentry/cmd/can-sentry/cmd"

func main() {
	cmd.Execute()
}
