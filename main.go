package main

import "github.com/ValentinKolb/scallionDB/cmd"

func main() {
	cmd.Execute()
}
