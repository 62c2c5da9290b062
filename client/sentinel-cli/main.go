package main

import "ScamSentinel/client/sentinel-cli/cmd"

func main() {
	cmd.Execute()
}
