package main

import "github.com/clarity-app/clarity-api/cmd/clarity"

func main() {
	clarity.Execute()
}
