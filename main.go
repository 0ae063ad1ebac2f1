package main

import "github.com/ValentinKolb/syncstore/cmd"

func main() {
	cmd.Execute()
}
