package main

import "github.com/OpenTraceLab/OpenTraceICD/cmd/icd/cmd"

func main() {
	cmd.Execute()
}
