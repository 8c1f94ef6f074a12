package main

import "github.com/frahmantamala/approval-portal/cmd"

func main() {
	cmd.Execute()
}
