// File: /main.go
package main

import "inkpost-api/cmd"

func main() {
	cmd.Execute()
}
