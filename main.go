package main

import "github.com/socialgenius/browserauth/cmd"

func main() {
	cmd.Execute()
}
